package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinOutboxMaxAttempts is the lowest retry ceiling accepted for the outbox relay
	MinOutboxMaxAttempts = 1
)

type Config struct {
	Environment string
	ServiceName string
	// Database
	DBDriver    string // sqlite | postgres
	DBPath      string
	DatabaseURL string
	// Logging
	LogLevel  string
	LogFormat string
	// Outbox relay
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	OutboxMaxAttempts   int
	OutboxRetention     time.Duration
	OutboxPurgeSchedule string
	// Publishing
	Publisher    string // kafka | log
	KafkaBrokers []string
	DRSTopic     string
	IIITopic     string
	AuditTopic   string
	// III notifications stay off until the interface is certified
	IIINotificationsEnabled bool
	// Ops endpoints
	MetricsAddr string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	maxAttempts := getEnvInt("OUTBOX_MAX_ATTEMPTS", 10)
	if maxAttempts < MinOutboxMaxAttempts {
		log.Printf("[WARNING] OUTBOX_MAX_ATTEMPTS=%d is below %d, using %d", maxAttempts, MinOutboxMaxAttempts, MinOutboxMaxAttempts)
		maxAttempts = MinOutboxMaxAttempts
	}

	cfg := &Config{
		Environment:             environment,
		ServiceName:             getEnv("SERVICE_NAME", "ident-index"),
		DBDriver:                strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:                  getEnv("DB_PATH", "db/ident.db"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", defaultLogFormat(environment)),
		OutboxPollInterval:      getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:         getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OutboxMaxAttempts:       maxAttempts,
		OutboxRetention:         getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		OutboxPurgeSchedule:     getEnv("OUTBOX_PURGE_SCHEDULE", "30 2 * * *"),
		Publisher:               strings.ToLower(getEnv("PUBLISHER", "log")),
		KafkaBrokers:            splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		DRSTopic:                getEnv("DRS_TOPIC", "ident.drs"),
		IIITopic:                getEnv("III_TOPIC", "ident.iii"),
		AuditTopic:              getEnv("AUDIT_TOPIC", "ident.audit"),
		IIINotificationsEnabled: getEnvBool("III_NOTIFICATIONS_ENABLED", false),
		MetricsAddr:             getEnv("METRICS_ADDR", ":9090"),
	}

	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" && environment == "production" {
		log.Fatal("[CRITICAL] DATABASE_URL is required when DB_DRIVER=postgres in production")
	}

	return cfg
}

// TopicFor maps an outbox topic key to the configured broker topic
func (c *Config) TopicFor(key string) string {
	switch key {
	case "drs":
		return c.DRSTopic
	case "iii":
		return c.IIITopic
	case "audit":
		return c.AuditTopic
	default:
		return key
	}
}

func defaultLogFormat(environment string) string {
	if environment == "production" {
		return "json"
	}
	return "console"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARNING] Invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[WARNING] Invalid duration for %s: %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
