package config

import (
	"os"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	StaticFilesPath string
	TemplatesPath   string
	MigrationsPath  string

	// Base URL for links in emails and OAuth redirects
	AppBaseURL           string
	OAuthRedirectBaseURL string

	// AWS SES email delivery. Email is disabled when FromEmail is empty.
	AWSRegion     string
	EmailFrom     string
	EmailFromName string
	EmailDebug    bool

	// OAuth providers
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	AppleClientID        string
	AppleClientSecret    string

	// Secret for stateless CSRF token generation
	CSRFSecret string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	baseURL := getEnv("APP_BASE_URL", "http://localhost:8080")
	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./brightquest.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionDuration: 24 * time.Hour,
		StaticFilesPath: getEnv("STATIC_PATH", "./static"),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./internal/templates"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),

		AppBaseURL:           baseURL,
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", baseURL),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "BrightQuest"),
		EmailDebug:    getEnv("EMAIL_DEBUG", "") == "true",

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		AppleClientID:        getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:    getEnv("APPLE_CLIENT_SECRET", ""),

		CSRFSecret: getEnv("CSRF_SECRET", "dev-only-csrf-secret"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
