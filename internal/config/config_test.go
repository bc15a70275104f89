package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
	if cfg.DBPort != "5432" {
		t.Errorf("DBPort = %q, want 5432", cfg.DBPort)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{
		DBDriver:   "postgres",
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "erp",
		DBPassword: "p@ss",
		DBName:     "textile",
		DBSSLMode:  "disable",
	}
	if got, want := cfg.DSN(), "postgres://erp:p%40ss@db:5432/textile?sslmode=disable"; got != want {
		t.Errorf("postgres DSN = %q, want %q", got, want)
	}

	cfg.DBDriver = "mysql"
	cfg.DBPort = "3306"
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "erp:p@ss@tcp(db:3306)/textile?") {
		t.Errorf("mysql DSN = %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("mysql DSN should enable parseTime, got %q", dsn)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{DBDriver: "sqlite"}).Validate(); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
	if err := (Config{DBDriver: "mysql", PubSubTopic: "events"}).Validate(); err == nil {
		t.Error("expected an error for a topic without project")
	}
	if err := (Config{DBDriver: "postgres"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
