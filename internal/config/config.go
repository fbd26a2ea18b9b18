package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/NematiDev/Zentec/internal/repository"
	"github.com/NematiDev/Zentec/internal/service"
)

// Config carries everything main needs to wire the service. Values come
// from the environment, with an optional .env file for local development.
type Config struct {
	HTTPPort string

	DB repository.Credentials

	RedisAddr string

	KafkaBrokers       []string
	OrderEventsTopic   string
	PaymentEventsTopic string
	ConsumerGroupID    string

	InventoryBaseURL string
	PaymentBaseURL   string
	UserBaseURL      string
	ProductBaseURL   string
	ClientTimeout    time.Duration

	PaymentMode  service.PaymentMode
	ServiceToken string

	ReaperDeadline     time.Duration
	ReaperInterval     time.Duration
	ReaperErrorBackoff time.Duration
	ReaperBatchSize    int
}

func Load() Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "orders"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		PaymentEventsTopic: getEnv("PAYMENT_EVENTS_TOPIC", "payment-events"),
		ConsumerGroupID:    getEnv("CONSUMER_GROUP_ID", "order-service"),

		InventoryBaseURL: getEnv("INVENTORY_SERVICE_URL", "http://localhost:8081/api/inventory"),
		PaymentBaseURL:   getEnv("PAYMENT_SERVICE_URL", "http://localhost:8082/api/payments"),
		UserBaseURL:      getEnv("USER_SERVICE_URL", "http://localhost:8083/api/users"),
		ProductBaseURL:   getEnv("PRODUCT_SERVICE_URL", "http://localhost:8084/api/products"),
		ClientTimeout:    getDuration("CLIENT_TIMEOUT", 10*time.Second),

		PaymentMode:  paymentMode(getEnv("PAYMENT_MODE", "sync")),
		ServiceToken: getEnv("SERVICE_TOKEN", ""),

		ReaperDeadline:     getDuration("REAPER_DEADLINE", 30*time.Minute),
		ReaperInterval:     getDuration("REAPER_INTERVAL", 5*time.Minute),
		ReaperErrorBackoff: getDuration("REAPER_ERROR_BACKOFF", time.Minute),
		ReaperBatchSize:    getInt("REAPER_BATCH_SIZE", 50),
	}
}

func paymentMode(v string) service.PaymentMode {
	if v == string(service.PaymentModeHosted) {
		return service.PaymentModeHosted
	}
	return service.PaymentModeSync
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
