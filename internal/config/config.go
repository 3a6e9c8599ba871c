package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string

	// Blob store (S3-compatible object storage)
	StorageURL    string
	StorageKey    string
	StorageBucket string

	// Image CDN
	CloudinaryURL string

	// Paymob payment gateway
	PaymobAPIKey        string
	PaymobBaseURL       string
	PaymobIntegrationID string
	PaymobIframeID      string
	PaymobHMACSecret    string

	// Aramex shipping
	AramexEndpoint      string
	AramexUserName      string
	AramexPassword      string
	AramexAccountNumber string
	AramexAccountPin    string
	AramexAccountEntity string
	ShipFromCity        string
	ShipFromCountry     string
	FallbackShippingFee float64

	// Pricing constants
	MaterialDensityGPerCm3 float64
	PricePerGram           float64
	SetupFee               float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		StorageURL:    getEnv("STORAGE_URL", ""),
		StorageKey:    getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket: getEnv("STORAGE_BUCKET", "designs"),

		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),

		PaymobAPIKey:        getEnv("PAYMOB_API_KEY", ""),
		PaymobBaseURL:       getEnv("PAYMOB_BASE_URL", "https://accept.paymob.com/api"),
		PaymobIntegrationID: getEnv("PAYMOB_INTEGRATION_ID", ""),
		PaymobIframeID:      getEnv("PAYMOB_IFRAME_ID", ""),
		PaymobHMACSecret:    getEnv("PAYMOB_HMAC_SECRET", ""),

		AramexEndpoint:      getEnv("ARAMEX_ENDPOINT", ""),
		AramexUserName:      getEnv("ARAMEX_USER_NAME", ""),
		AramexPassword:      getEnv("ARAMEX_PASSWORD", ""),
		AramexAccountNumber: getEnv("ARAMEX_ACCOUNT_NUMBER", ""),
		AramexAccountPin:    getEnv("ARAMEX_ACCOUNT_PIN", ""),
		AramexAccountEntity: getEnv("ARAMEX_ACCOUNT_ENTITY", "EG"),
		ShipFromCity:        getEnv("SHIP_FROM_CITY", "Alexandria"),
		ShipFromCountry:     getEnv("SHIP_FROM_COUNTRY_CODE", "EG"),
		FallbackShippingFee: getEnvFloat("FALLBACK_SHIPPING_FEE", 10.00),

		MaterialDensityGPerCm3: getEnvFloat("MATERIAL_DENSITY_G_PER_CM3", 1.04),
		PricePerGram:           getEnvFloat("PRICE_PER_GRAM", 0.5),
		SetupFee:               getEnvFloat("SETUP_FEE", 2.00),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.StorageURL == "" {
		return fmt.Errorf("STORAGE_URL is required")
	}
	if c.StorageKey == "" {
		return fmt.Errorf("STORAGE_SERVICE_KEY is required")
	}
	if c.CloudinaryURL == "" {
		return fmt.Errorf("CLOUDINARY_URL is required")
	}
	if c.MaterialDensityGPerCm3 <= 0 {
		return fmt.Errorf("MATERIAL_DENSITY_G_PER_CM3 must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
