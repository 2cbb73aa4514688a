package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Environment string
	LogLevel    string
	ServerHost  string
	ServerPort  string

	StoreBackend     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string
	MigrationsDir    string

	AfricasTalkingUsername string
	AfricasTalkingAPIKey   string
	AfricasTalkingSMSURL   string
	AfricasTalkingVoiceURL string
	AfricasTalkingCallerID string
	ProviderTimeout        time.Duration

	JWTSecret string

	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int

	KafkaURL                 string
	KafkaGroupID             string
	ConfirmationsKafkaTopic  string
	ReminderEventsKafkaTopic string

	AWSRegion           string
	AWSEndpoint         string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	SQSDispatchQueueURL string

	GeminiAPIKey string
	GeminiModel  string
	GeminiURL    string
}

// LoadEnv loads environment variables from .env files
func LoadEnv() {
	envPaths := []string{
		".env",    // Current directory
		"../.env", // One level up
	}

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			logger.Log.Infof("Loaded environment variables from %s", path)
			return
		}
	}

	logger.Log.Info("No .env file found, using environment variables")
}

func Load() Config {
	LoadEnv()

	return Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServerHost:  getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),

		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseUser:     getEnv("DATABASE_USER", "mkumbusha"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", ""),
		DatabaseName:     getEnv("DATABASE_NAME", "mkumbusha"),
		DatabaseSSLMode:  getEnv("DATABASE_SSL_MODE", "disable"),
		MigrationsDir:    getEnv("MIGRATIONS_DIR", "migrations"),

		AfricasTalkingUsername: getEnv("AFRICASTALKING_USERNAME", ""),
		AfricasTalkingAPIKey:   getEnv("AFRICASTALKING_API_KEY", ""),
		AfricasTalkingSMSURL:   getEnv("AFRICASTALKING_SMS_URL", "https://api.africastalking.com/version1/messaging"),
		AfricasTalkingVoiceURL: getEnv("AFRICASTALKING_VOICE_URL", "https://api.africastalking.com/version1/call"),
		AfricasTalkingCallerID: getEnv("AFRICASTALKING_CALLER_ID", ""),
		ProviderTimeout:        getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"authorization", "x-client-info", "apikey", "content-type"}),
		MaxAge:         getEnvInt("CORS_MAX_AGE", 3600),

		KafkaURL:                 getEnv("KAFKA_URL", ""),
		KafkaGroupID:             getEnv("KAFKA_GROUP_ID", "mkumbusha-reminder-service"),
		ConfirmationsKafkaTopic:  getEnv("KAFKA_CONFIRMATIONS_TOPIC", "mkumbusha.reminder.confirmations"),
		ReminderEventsKafkaTopic: getEnv("KAFKA_REMINDER_EVENTS_TOPIC", "mkumbusha.reminder.events"),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-1"),
		AWSEndpoint:         getEnv("AWS_LOCAL_ENDPOINT_URL", ""),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		SQSDispatchQueueURL: getEnv("AWS_SQS_DISPATCH_QUEUE_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiURL:    getEnv("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
	}
}

// Validate checks that the settings required by the selected backends are present
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseName == "" {
			return fmt.Errorf("DATABASE_NAME is required for the postgres store")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.IsProduction() {
		if c.AfricasTalkingUsername == "" || c.AfricasTalkingAPIKey == "" {
			return fmt.Errorf("AFRICASTALKING_USERNAME and AFRICASTALKING_API_KEY are required in production")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// PostgresDSN builds a lib/pq connection string
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUser, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Log.Warnf("Env var %s=%q is not an integer, using fallback %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Log.Warnf("Env var %s=%q is not a duration, using fallback %s", key, value, fallback)
		return fallback
	}
	return d
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
