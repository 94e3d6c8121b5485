// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion     string
	AuditS3Bucket string

	// Database
	DatabaseURLOverride string
	DBHost              string
	DBPort              int
	DBName              string
	DBUser              string
	DBPassword          string
	DBMaxConns          int

	// SES
	SESSenderEmail          string
	DisbursementNotifyEmail string

	// Kafka
	KafkaBrokers    []string
	AuditKafkaTopic string

	// Redis
	RedisAddr     string
	RedisPassword string

	// Disbursement
	DisbursementLockTTL    time.Duration
	DisbursementMaxRetries int

	// Application
	Port     string
	Stage    string
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		AuditS3Bucket: getEnv("AUDIT_S3_BUCKET", ""),

		// Database
		DatabaseURLOverride: getEnv("DATABASE_URL", ""),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnvInt("DB_PORT", 5432),
		DBName:              getEnv("DB_NAME", "bnpl_financing"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 10),

		// SES
		SESSenderEmail:          getEnv("SES_SENDER_EMAIL", ""),
		DisbursementNotifyEmail: getEnv("DISBURSEMENT_NOTIFY_EMAIL", ""),

		// Kafka
		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		AuditKafkaTopic: getEnv("AUDIT_KAFKA_TOPIC", "financing-audit"),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// Disbursement
		DisbursementLockTTL:    getEnvDuration("DISBURSEMENT_LOCK_TTL", 30*time.Second),
		DisbursementMaxRetries: getEnvInt("DISBURSEMENT_MAX_RETRIES", 3),

		// Application
		Port:     getEnv("PORT", "8080"),
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration parses values such as "30s" or "2m".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
