package database

import (
	"fmt"
	"log"
	"time"

	"textile-erp/internal/config"
	"textile-erp/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.Ledger{},
		&model.Purchase{},
		&model.WeaverChallan{},
		&model.ShortingEntry{},
		&model.StitchingChallan{},
		&model.InventoryItem{},
		&model.ConversionLog{},
		&model.Expense{},
		&model.PaymentVoucher{},
		&model.AuditLog{},
	}
}

// NewConnection opens the configured database, tunes the pool, installs tracing and
// migrates the schema. Connection attempts are retried with exponential backoff.
func NewConnection(cfg config.Config, logg *logrus.Logger) (*gorm.DB, error) {
	dialector, err := open(cfg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         newGormLogger(logg),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		if attempt >= 5 {
			return nil, fmt.Errorf("failed to connect database after %d attempts: %w", attempt, err)
		}
		sleep := time.Second * time.Duration(1<<attempt)
		logg.WithError(err).Warnf("failed to connect database (attempt=%d); retrying in %s", attempt, sleep)
		time.Sleep(sleep)
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		if cfg.DBMaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		}
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		if cfg.DBConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		}
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		logg.WithError(pluginErr).Warn("db connected but failed to install otelgorm plugin")
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		logg.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}

func open(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// newGormLogger routes gorm's slow query and error output through logrus
func newGormLogger(logg *logrus.Logger) logger.Interface {
	level := logger.Error
	if logg.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	return logger.New(
		log.New(logg.WriterLevel(logrus.WarnLevel), "", 0),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  level,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}
