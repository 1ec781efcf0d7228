// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required values are enforced at load
// time; optional integrations (broker, payment provider) may be empty
// and the features degrade gracefully.
type Config struct {
	Env      string // application environment (dev/test/prod)
	Port     string // HTTP port to listen on
	LogLevel string // slog level: debug, info, warn, error

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	AMQPURL         string // RabbitMQ URL (optional; empty disables events)
	KhaltiSecret    string // Khalti secret key (optional; empty disables payments)
	KhaltiReturnURL string // URL the provider redirects riders back to
}

// Load reads configuration from environment variables. Missing
// required variables cause the program to exit with a fatal log
// message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		AMQPURL:         firstEnv("RABBITMQ_URL", "AMQP_URL"),
		KhaltiSecret:    os.Getenv("KHALTI_SECRET_KEY"),
		KhaltiReturnURL: os.Getenv("KHALTI_RETURN_URL"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() with integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
