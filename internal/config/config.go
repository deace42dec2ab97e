// Package config loads application configuration from environment variables,
// an optional .env file and an optional YAML file for the cleaning pipeline.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/iliyamo/catalog-insights/internal/database"
)

// Config holds the runtime values shared by the server and the CLI.  Each
// field corresponds to an environment variable.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBDriver      string // "sqlite" (default) or "mysql"
	DBDSN         string // data source name passed to the driver
	AMQPURL       string // RabbitMQ URL; empty disables import events
	ImportLogPath string // audit log written by the events consumer
}

// AuthConfig holds the admin credentials and token settings.  Only the
// server needs it, so it is loaded separately.
type AuthConfig struct {
	JWTSecret         string // secret used to sign JWTs
	AccessTTLMin      int    // access token time-to-live in minutes
	BcryptCost        int    // bcrypt cost for password hashing
	AdminUser         string // admin login name
	AdminPasswordHash string // bcrypt hash of the admin password
}

// LoadDotEnv loads variables from ENV_FILE (default ".env") without
// overriding variables that are already set.  A missing file is not an error.
func LoadDotEnv() error {
	path := getenv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration values from environment variables and returns a
// Config.  Every value has a default suitable for local use.
func Load() Config {
	c := Config{
		Env:           getenv("APP_ENV", "dev"),
		Port:          getenv("APP_PORT", "8080"),
		DBDriver:      getenv("DB_DRIVER", database.DriverSQLite),
		DBDSN:         os.Getenv("DB_DSN"),
		AMQPURL:       firstEnv("RABBITMQ_URL", "AMQP_URL"),
		ImportLogPath: getenv("IMPORT_LOG_PATH", "logs/import.log"),
	}
	if c.DBDSN == "" {
		switch c.DBDriver {
		case database.DriverMySQL:
			c.DBDSN = database.MySQLDSN(
				getenv("DB_USER", "root"),
				os.Getenv("DB_PASS"), // empty allowed
				getenv("DB_HOST", "127.0.0.1"),
				getenv("DB_PORT", "3306"),
				getenv("DB_NAME", "catalog"),
			)
		default:
			c.DBDSN = "data/catalog.db"
		}
	}
	return c
}

// LoadAuth reads the admin settings.  Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log
// message.
func LoadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:        BcryptCost(),
		AdminUser:         getenv("ADMIN_USER", "admin"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
	}
}

// BcryptCost returns BCRYPT_COST, default 12.
func BcryptCost() int {
	return envInt("BCRYPT_COST", 12)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}
