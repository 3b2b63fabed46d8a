// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/festgo/rbg-registration/utils"
	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database     DatabaseConfig     `json:"database"`
	Server       ServerConfig       `json:"server"`
	Security     SecurityConfig     `json:"security"`
	SMS          SMSConfig          `json:"sms"`
	Logging      LoggingConfig      `json:"logging"`
	Metrics      MetricsConfig      `json:"metrics"`
	Cache        CacheConfig        `json:"cache"`
	Registration RegistrationConfig `json:"registration"`
	Deployment   DeploymentConfig   `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
	MigrationsDir   string        `json:"migrations_dir"`
}

// DSN returns the key/value connection string understood by both pgx and lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, int(c.ConnectTimeout.Seconds()))
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	SubmitRateLimit int           `json:"submit_rate_limit"` // requests per window per IP
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window per IP
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

type SMSConfig struct {
	Provider        string        `json:"provider"` // smslogin, mock
	APIURL          string        `json:"api_url"`
	Username        string        `json:"username"`
	APIKey          string        `json:"api_key"`
	SenderID        string        `json:"sender_id"`
	TemplateID      string        `json:"template_id"`
	MessageTemplate string        `json:"message_template"`
	Timeout         time.Duration `json:"timeout"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`

	EnableAccessLog bool `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	ListingTTL      time.Duration `json:"listing_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type RegistrationConfig struct {
	RegNoPrefix      string        `json:"reg_no_prefix"`
	ListLimit        int           `json:"list_limit"`
	DedupLockEnabled bool          `json:"dedup_lock_enabled"`
	DedupLockTTL     time.Duration `json:"dedup_lock_ttl"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// IsDevelopment reports whether the service runs in a local/development environment
func (d DeploymentConfig) IsDevelopment() bool {
	return d.Environment == "development" || d.Environment == "local"
}

// DefaultMessageTemplate is the pre-approved DLT template; {#var#} is replaced by the registration number
const DefaultMessageTemplate = `Dear Member, your reg no:{#var#}.You are registered for FESTGO EVENTS -RBG Palnadu Chapter Launch 21st Sep, 9:30AM @ SNR Convention, NRT. Lunch follows."RBG TEAM palnadu"`

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "rbg_registration"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
			MigrationsDir:   getEnvString("DB_MIGRATIONS_DIR", "migrations"),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://festgo.in", "https://www.festgo.in"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Requested-With", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", utils.CORSMaxAge),
			SubmitRateLimit:  getEnvInt("SUBMIT_RATE_LIMIT", 20),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		SMS: SMSConfig{
			Provider:        getEnvString("SMS_PROVIDER", "smslogin"),
			APIURL:          getEnvString("SMS_API_URL", "https://smslogin.co/v3/api.php"),
			Username:        getEnvString("SMS_USERNAME", ""),
			APIKey:          getEnvString("SMS_API_KEY", ""),
			SenderID:        getEnvString("SMS_SENDER", ""),
			TemplateID:      getEnvString("SMS_TEMPLATE_ID", ""),
			MessageTemplate: getEnvString("SMS_MESSAGE_TEMPLATE", DefaultMessageTemplate),
			Timeout:         getEnvDuration("SMS_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "/var/log/rbg/app.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "rbg:"),
			ListingTTL:      getEnvDuration("CACHE_LISTING_TTL", 15*time.Second),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 1*time.Minute),
		},
		Registration: RegistrationConfig{
			RegNoPrefix:      getEnvString("REGISTRATION_REG_NO_PREFIX", utils.DefaultRegNoPrefix),
			ListLimit:        getEnvInt("REGISTRATION_LIST_LIMIT", utils.DefaultListLimit),
			DedupLockEnabled: getEnvBool("REGISTRATION_DEDUP_LOCK_ENABLED", false),
			DedupLockTTL:     getEnvDuration("REGISTRATION_DEDUP_LOCK_TTL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads variables from path if it exists; variables already set in the
// environment are left untouched
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var validationErrors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		validationErrors = append(validationErrors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		validationErrors = append(validationErrors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		validationErrors = append(validationErrors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		validationErrors = append(validationErrors, "DB_USER is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		validationErrors = append(validationErrors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate SMS configuration unless mocked
	switch cfg.SMS.Provider {
	case "mock":
	case "smslogin":
		if cfg.SMS.APIURL == "" {
			validationErrors = append(validationErrors, "SMS_API_URL is required for SMS provider")
		}
		if cfg.SMS.Username == "" {
			validationErrors = append(validationErrors, "SMS_USERNAME is required for SMS provider")
		}
		if cfg.SMS.APIKey == "" {
			validationErrors = append(validationErrors, "SMS_API_KEY is required for SMS provider")
		}
		if cfg.SMS.SenderID == "" {
			validationErrors = append(validationErrors, "SMS_SENDER is required for SMS provider")
		}
		if cfg.SMS.TemplateID == "" {
			validationErrors = append(validationErrors, "SMS_TEMPLATE_ID is required for SMS provider")
		}
	default:
		validationErrors = append(validationErrors, "SMS_PROVIDER must be one of: [smslogin mock]")
	}
	if cfg.SMS.Timeout <= 0 {
		validationErrors = append(validationErrors, "SMS_TIMEOUT must be positive")
	}
	if !strings.Contains(cfg.SMS.MessageTemplate, "{#var#}") {
		validationErrors = append(validationErrors, "SMS_MESSAGE_TEMPLATE must contain a {#var#} placeholder")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			validationErrors = append(validationErrors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	switch cfg.Logging.Output {
	case "stdout":
	case "file", "both":
		if cfg.Logging.FilePath == "" {
			validationErrors = append(validationErrors, "LOG_FILE_PATH is required when logging to a file")
		}
	default:
		validationErrors = append(validationErrors, "LOG_OUTPUT must be one of: [stdout file both]")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			validationErrors = append(validationErrors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate registration configuration
	if cfg.Registration.ListLimit <= 0 || cfg.Registration.ListLimit > utils.DefaultListLimit {
		validationErrors = append(validationErrors, fmt.Sprintf("REGISTRATION_LIST_LIMIT must be between 1 and %d", utils.DefaultListLimit))
	}
	if cfg.Registration.DedupLockEnabled {
		if !cfg.Cache.Enabled {
			validationErrors = append(validationErrors, "REGISTRATION_DEDUP_LOCK_ENABLED requires CACHE_ENABLED")
		}
		// a zero TTL would never expire
		if cfg.Registration.DedupLockTTL <= 0 {
			validationErrors = append(validationErrors, "REGISTRATION_DEDUP_LOCK_TTL must be positive when the dedup lock is enabled")
		}
	}

	// Return validation errors if any
	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(validationErrors, "; "))
	}

	return nil
}
