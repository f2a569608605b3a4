package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type EmailConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	From         string
	AdminAddress string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type NotifyConfig struct {
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

type Config struct {
	Port              string
	DatabaseURL       string
	JWTSecret         string
	GinMode           string
	LogLevel          string
	AllowedOrigins    []string
	Email             EmailConfig
	Kafka             KafkaConfig
	Notify            NotifyConfig
	AdminEmail        string
	AdminPassword     string
	LowStockThreshold int
}

func LoadEnv() error {
	// A missing .env is expected in production where variables are set
	// directly.
	_ = godotenv.Load()
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Missing notification settings only degrade delivery and are logged.
func ValidateEnv(log *zap.Logger) error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if log == nil {
		return nil
	}
	if os.Getenv("FRONTEND_URL") == "" {
		log.Warn("FRONTEND_URL not set, CORS falls back to localhost")
	}
	for _, key := range []string{"SMTP_HOST", "SMTP_PORT", "SMTP_FROM"} {
		if os.Getenv(key) == "" {
			log.Warn("email notifications disabled", zap.String("missing", key))
		}
	}
	if os.Getenv("KAFKA_BROKERS") == "" {
		log.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	return nil
}

func Load() Config {
	origins := []string{"http://localhost:3000"}
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		origins = splitList(frontend)
	}
	if admin := os.Getenv("ADMIN_URL"); admin != "" {
		origins = append(origins, splitList(admin)...)
	}

	return Config{
		Port:           GetEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GinMode:        GetEnv("GIN_MODE", "debug"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		AllowedOrigins: origins,
		Email: EmailConfig{
			Host:         os.Getenv("SMTP_HOST"),
			Port:         GetEnv("SMTP_PORT", "587"),
			Username:     os.Getenv("SMTP_USERNAME"),
			Password:     os.Getenv("SMTP_PASSWORD"),
			From:         os.Getenv("SMTP_FROM"),
			AdminAddress: os.Getenv("ORDER_ADMIN_EMAIL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   GetEnv("KAFKA_ORDER_TOPIC", "storefront.order-events"),
		},
		Notify: NotifyConfig{
			QueueSize:   GetEnvInt("NOTIFY_QUEUE_SIZE", 100),
			MaxAttempts: GetEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			Backoff:     GetEnvDuration("NOTIFY_BACKOFF", 2*time.Second),
		},
		AdminEmail:        GetEnv("ADMIN_EMAIL", "admin@amhaz.local"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		LowStockThreshold: GetEnvInt("LOW_STOCK_THRESHOLD", 5),
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
