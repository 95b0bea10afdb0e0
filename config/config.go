package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisURL         string
	GuestCartTTL     time.Duration
	StripeSecretKey  string
	StripeWebhookKey string
	JWTSecret        string
	CatalogBaseURL   string
	// PlatformFeePercent is the platform's cut of each sale; the instructor
	// payout is amount * (1 - fee/100).
	PlatformFeePercent     float64
	FulfillmentSNSTopicARN string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: No .env file found, using system environment variables")
	}

	feePercent, err := strconv.ParseFloat(getEnv("PLATFORM_FEE_PERCENT", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_PERCENT: %w", err)
	}

	ttlHours, err := strconv.Atoi(getEnv("GUEST_CART_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid GUEST_CART_TTL_HOURS: %w", err)
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8088"),
		Env:                    getEnv("APP_ENV", "development"),
		PostgresUser:           os.Getenv("POSTGRES_USER"),
		PostgresPassword:       os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:             os.Getenv("POSTGRES_DB"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:       getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		GuestCartTTL:           time.Duration(ttlHours) * time.Hour,
		StripeSecretKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:       os.Getenv("STRIPE_WEBHOOK_SECRET"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		CatalogBaseURL:         getEnv("CATALOG_BASE_URL", "http://localhost:8082"),
		PlatformFeePercent:     feePercent,
		FulfillmentSNSTopicARN: getEnv("FULFILLMENT_SNS_TOPIC_ARN", ""),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" ||
		cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" || cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
