package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Storage  StorageConfig
	SMTP     SMTPConfig
	Scan     ScanConfig
	Office   OfficeConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

// StorageConfig selects the persistence backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string
}

// SMTPConfig holds outgoing mail settings used for attendance alerts.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	From           string
	FromName       string
	AlertRecipient string
	MaxRetries     int
}

// ScanConfig holds scan ingestion settings
type ScanConfig struct {
	TokenTTL        time.Duration
	RequireToken    bool
	StrictScanOrder bool
	GeoIPEnabled    bool
	GeoIPBaseURL    string
}

// OfficeConfig holds the defaults applied when no office settings are stored.
// Latitude/Longitude are optional; when both are set scans are tagged with their distance from the office.
type OfficeConfig struct {
	Start              string
	End                string
	RequiredDailyHours float64
	Latitude           *float64
	Longitude          *float64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_db"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Local"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	config.Storage = StorageConfig{
		Driver: getEnv("STORAGE_DRIVER", "postgres"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	smtpRetries, err := strconv.Atoi(getEnv("SMTP_MAX_RETRIES", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_MAX_RETRIES: %w", err)
	}

	config.SMTP = SMTPConfig{
		Host:           getEnv("SMTP_HOST", ""),
		Port:           smtpPort,
		Username:       getEnv("SMTP_USERNAME", ""),
		Password:       getEnv("SMTP_PASSWORD", ""),
		From:           getEnv("SMTP_FROM", "attendance@localhost"),
		FromName:       getEnv("SMTP_FROM_NAME", "Attendance Tracker"),
		AlertRecipient: getEnv("ALERT_RECIPIENT", ""),
		MaxRetries:     smtpRetries,
	}

	// Scan configuration
	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	config.Scan = ScanConfig{
		TokenTTL:        tokenTTL,
		RequireToken:    getEnvBool("REQUIRE_TOKEN", false),
		StrictScanOrder: getEnvBool("STRICT_SCAN_ORDER", false),
		GeoIPEnabled:    getEnvBool("GEOIP_ENABLED", false),
		GeoIPBaseURL:    getEnv("GEOIP_BASE_URL", "https://ipapi.co"),
	}

	// Office defaults
	requiredHours, err := strconv.ParseFloat(getEnv("REQUIRED_DAILY_HOURS", "8"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUIRED_DAILY_HOURS: %w", err)
	}

	config.Office = OfficeConfig{
		Start:              getEnv("OFFICE_START", "09:00:00"),
		End:                getEnv("OFFICE_END", "17:00:00"),
		RequiredDailyHours: requiredHours,
	}
	if config.Office.Latitude, err = getEnvFloatPtr("OFFICE_LATITUDE"); err != nil {
		return nil, err
	}
	if config.Office.Longitude, err = getEnvFloatPtr("OFFICE_LONGITUDE"); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.Storage.Driver)
	}
	if c.Scan.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.SMTP.MaxRetries < 1 {
		return fmt.Errorf("SMTP_MAX_RETRIES must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location resolves the timezone that defines the attendance calendar day.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.App.Timezone)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloatPtr(key string) (*float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}

func getEnvSlice(env, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
