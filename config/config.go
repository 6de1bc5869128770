package config

import (
	"os"
	"strconv"
	"time"

	"eventhub/internal/services/gateway/razorpay"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string

	// Payment gateway configuration
	Razorpay razorpay.Config

	// QR ticket configuration
	QRSecret    string
	QRFreshness time.Duration

	// Notification configuration
	NotifierBuffer int

	// Rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "eventhub-server"),

		// Gateway
		Razorpay: razorpay.Config{
			BaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			Timeout:       getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),
		},

		// QR tickets
		QRSecret:    getEnv("QR_SECRET", ""),
		QRFreshness: getEnvAsDuration("QR_FRESHNESS_WINDOW", "24h"),

		// Notifications
		NotifierBuffer: getEnvAsInt("NOTIFIER_BUFFER", 256),

		// Rate limiting
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
