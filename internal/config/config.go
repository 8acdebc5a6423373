package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// ClinicTimezone controls what "today" means for the appointment list.
	ClinicTimezone string

	// Letterhead fields on the printable prescription.
	ClinicName string
	DoctorName string

	// Appointment store (the remote REST API owning all appointment data)
	StoreBaseURL string
	StoreAPIKey  string
	StoreTimeout time.Duration

	// Authentication provider
	AuthBaseURL string
	AuthAPIKey  string
	AuthTimeout time.Duration

	// Image host for profile photos
	ImageUploadURL string
	ImageAPIKey    string

	// Session cookie signing
	SessionSecret string
	SessionTTL    time.Duration

	// Response cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CacheTTL      time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Asia/Dhaka"),
		ClinicName:     getEnv("CLINIC_NAME", "ClinicDesk"),
		DoctorName:     getEnv("DOCTOR_NAME", ""),

		StoreBaseURL: getEnv("STORE_BASE_URL", ""),
		StoreAPIKey:  getEnv("STORE_API_KEY", ""),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 30*time.Second),

		AuthBaseURL: getEnv("AUTH_BASE_URL", ""),
		AuthAPIKey:  getEnv("AUTH_API_KEY", ""),
		AuthTimeout: getEnvAsDuration("AUTH_TIMEOUT", 15*time.Second),

		ImageUploadURL: getEnv("IMAGE_UPLOAD_URL", ""),
		ImageAPIKey:    getEnv("IMAGE_API_KEY", ""),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
