// Package config loads application configuration from environment
// variables, after reading a .env file when one is present.
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported DB_DRIVER values.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBDriver        string // "mysql" or "sqlite"
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	SQLitePath      string // SQLite file, ":memory:" for a throwaway store
	JWTSecret       string // secret used to verify viewer JWTs
	TokenTTLMin     int    // lifetime of tokens minted by cmd/tokengen
	DefaultTimezone string // IANA zone used when a request carries none
	SeedDemo        bool   // insert a demo event on startup
}

// Load reads configuration values from the environment.  A .env file in the
// working directory is loaded first; variables already set win.  Missing
// required values cause the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}
	cfg := Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            must("APP_PORT"),
		DBDriver:        strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		SQLitePath:      getenv("SQLITE_PATH", "timetable.db"),
		JWTSecret:       must("JWT_SECRET"),
		TokenTTLMin:     envInt("TOKEN_TTL_MIN", 60),
		DefaultTimezone: getenv("DEFAULT_TIMEZONE", "UTC"),
		SeedDemo:        envBool("SEED_DEMO", false),
	}
	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverSQLite:
	default:
		log.Fatalf("invalid DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// Location returns DefaultTimezone, or UTC when the name is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		log.Printf("config: DEFAULT_TIMEZONE %q: %v, using UTC", c.DefaultTimezone, err)
		return time.UTC
	}
	return loc
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
