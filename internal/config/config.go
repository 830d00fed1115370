package config // package config loads application configuration from environment variables

import (
	"log" // log reports configuration errors and halts execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field maps to an
// environment variable.  Secrets and identifiers stay as strings; the
// payment currency is fixed per deployment.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify staff access tokens
	Currency  string // ISO currency code for charges (e.g. "usd")
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must(); missing values exit with a fatal
// log message so a misconfigured instance never serves traffic.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
		Currency:  getenv("CURRENCY", "usd"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the value of key or a default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
