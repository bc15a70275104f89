package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config is everything the API and the maintenance tools read from the environment
type Config struct {
	Port        string
	LogLevel    string
	CORSOrigins []string
	JWTSecret   string

	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddress  string
	RedisPassword string

	PubSubProjectID       string
	PubSubTopic           string
	PubSubCredentialsJSON string

	ExportBucket       string
	GCSCredentialsJSON string
}

// Load reads configs/.env when present and fills defaults for a local setup
func Load() Config {
	_ = godotenv.Load("configs/.env")

	driver := strings.ToLower(getenv("DB_DRIVER", "postgres"))
	defaultPort := "5432"
	defaultUser := "postgres"
	if driver == "mysql" {
		defaultPort = "3306"
		defaultUser = "root"
	}

	return Config{
		Port:        getenv("PORT", "8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		DBDriver:          driver,
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", defaultPort),
		DBUser:            getenv("DB_USER", defaultUser),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBName:            getenv("DB_NAME", "textile_erp"),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PubSubProjectID:       firstNonEmpty(os.Getenv("PUBSUB_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT")),
		PubSubTopic:           os.Getenv("PUBSUB_TOPIC"),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),

		ExportBucket:       os.Getenv("EXPORT_BUCKET"),
		GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
	}
}

// DSN builds the connection string for the configured driver
func (c Config) DSN() string {
	if c.DBDriver == "mysql" {
		cfg := mysql.NewConfig()
		cfg.User = c.DBUser
		cfg.Passwd = c.DBPassword
		cfg.Net = "tcp"
		cfg.Addr = c.DBHost + ":" + c.DBPort
		cfg.DBName = c.DBName
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN()
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// Validate rejects settings the service cannot start with
func (c Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "mysql" {
		return fmt.Errorf("DB_DRIVER must be postgres or mysql, got %q", c.DBDriver)
	}
	if c.PubSubTopic != "" && c.PubSubProjectID == "" {
		return fmt.Errorf("PUBSUB_TOPIC is set but PUBSUB_PROJECT_ID is empty")
	}
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func intFromEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
