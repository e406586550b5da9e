// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/invitewave/invitewave/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	SMS       SMSConfig       `json:"sms"`
	Email     EmailConfig     `json:"email"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Import    ImportConfig    `json:"import"`
	Retention RetentionConfig `json:"retention"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
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
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	TrustedProxies  []string      `json:"trusted_proxies"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	// TLS/HTTPS
	TLSEnabled  bool   `json:"tls_enabled"`
	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`

	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

type SMSConfig struct {
	ProviderDomain   string            `json:"provider_domain"`
	ProviderDomains  map[string]string `json:"provider_domains"`
	DefaultSender    string            `json:"default_sender"`
	APIKey           string            `json:"api_key"`
	Timeout          time.Duration     `json:"timeout"`
	AllowedCountries []string          `json:"allowed_countries"`
	DefaultRegion    string            `json:"default_region"`
}

type EmailConfig struct {
	APIKey      string        `json:"api_key"`
	SenderEmail string        `json:"sender_email"`
	SenderName  string        `json:"sender_name"`
	Timeout     time.Duration `json:"timeout"`
}

type DispatchConfig struct {
	BatchSize         int           `json:"batch_size"`
	PollInterval      time.Duration `json:"poll_interval"`
	TaskTimeout       time.Duration `json:"task_timeout"`
	RetryInterval     time.Duration `json:"retry_interval"`
	MaxBackoff        time.Duration `json:"max_backoff"`
	MaxAttempts       int           `json:"max_attempts"`
	AnalyticsInterval time.Duration `json:"analytics_interval"`
}

type ImportConfig struct {
	MaxRows    int           `json:"max_rows"`
	MaxBytes   int64         `json:"max_bytes"`
	SessionTTL time.Duration `json:"session_ttl"`
}

type RetentionConfig struct {
	ActivityMaxAge  time.Duration `json:"activity_max_age"`
	ActivityMaxRows int64         `json:"activity_max_rows"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 16*1024*1024), // 16MB, covers import uploads
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			TLSEnabled:         getEnvBool("TLS_ENABLED", false),
			TLSCertFile:        getEnvString("TLS_CERT_FILE", ""),
			TLSKeyFile:         getEnvString("TLS_KEY_FILE", ""),
			AllowedOrigins:     getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://app.invitewave.io", "https://admin.invitewave.io"}),
			AllowCredentials:   getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		},
		SMS: SMSConfig{
			ProviderDomain:   getEnvString("SMS_PROVIDER_DOMAIN", "mock"),
			ProviderDomains:  getEnvStringMap("SMS_PROVIDER_DOMAINS", map[string]string{}),
			DefaultSender:    getEnvString("SMS_DEFAULT_SENDER", ""),
			APIKey:           getEnvString("SMS_API_KEY", ""),
			Timeout:          getEnvDuration("SMS_TIMEOUT", 30*time.Second),
			AllowedCountries: getEnvStringSlice("SMS_ALLOWED_COUNTRIES", []string{}),
			DefaultRegion:    getEnvString("SMS_DEFAULT_REGION", ""),
		},
		Email: EmailConfig{
			APIKey:      getEnvString("EMAIL_API_KEY", ""),
			SenderEmail: getEnvString("EMAIL_SENDER_EMAIL", "noreply@invitewave.io"),
			SenderName:  getEnvString("EMAIL_SENDER_NAME", "Invitewave"),
			Timeout:     getEnvDuration("EMAIL_TIMEOUT", 30*time.Second),
		},
		Dispatch: DispatchConfig{
			BatchSize:         getEnvInt("DISPATCH_BATCH_SIZE", utils.DispatchBatchSize),
			PollInterval:      getEnvDuration("DISPATCH_POLL_INTERVAL", 15*time.Second),
			TaskTimeout:       getEnvDuration("DISPATCH_TASK_TIMEOUT", 0),
			RetryInterval:     getEnvDuration("DISPATCH_RETRY_INTERVAL", 1*time.Minute),
			MaxBackoff:        getEnvDuration("DISPATCH_MAX_BACKOFF", 30*time.Minute),
			MaxAttempts:       getEnvInt("DISPATCH_MAX_ATTEMPTS", utils.DispatchMaxAttempts),
			AnalyticsInterval: getEnvDuration("DISPATCH_ANALYTICS_INTERVAL", 1*time.Hour),
		},
		Import: ImportConfig{
			MaxRows:    getEnvInt("IMPORT_MAX_ROWS", utils.ImportMaxRows),
			MaxBytes:   int64(getEnvInt("IMPORT_MAX_BYTES", utils.ImportMaxBytes)),
			SessionTTL: getEnvDuration("IMPORT_SESSION_TTL", utils.ImportSessionTTL),
		},
		Retention: RetentionConfig{
			ActivityMaxAge:  getEnvDuration("ACTIVITY_MAX_AGE", utils.ActivityRetentionAge),
			ActivityMaxRows: int64(getEnvInt("ACTIVITY_MAX_ROWS", utils.ActivityRetentionMaxRows)),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "both"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/invitewave/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "invitewave:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
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

// getEnvStringMap parses "key=value,key2=value2" pairs
func getEnvStringMap(key string, defaultValue map[string]string) map[string]string {
	if value := os.Getenv(key); value != "" {
		result := make(map[string]string)
		for _, item := range strings.Split(value, ",") {
			pair := strings.SplitN(strings.TrimSpace(item), "=", 2)
			if len(pair) == 2 && pair[0] != "" && pair[1] != "" {
				result[pair[0]] = pair[1]
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
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate SMS configuration if enabled
	if cfg.SMS.ProviderDomain != "mock" {
		if cfg.SMS.APIKey == "" {
			errors = append(errors, "SMS_API_KEY is required for SMS provider")
		}
		if cfg.SMS.DefaultSender == "" {
			errors = append(errors, "SMS_DEFAULT_SENDER is required for SMS provider")
		}
	}

	// Validate email configuration if enabled
	if cfg.Email.APIKey != "" && cfg.Email.SenderEmail == "" {
		errors = append(errors, "EMAIL_SENDER_EMAIL is required for email configuration")
	}

	// Validate dispatch configuration
	if cfg.Dispatch.BatchSize <= 0 {
		errors = append(errors, "DISPATCH_BATCH_SIZE must be positive")
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		errors = append(errors, "DISPATCH_MAX_ATTEMPTS must be positive")
	}
	if cfg.Dispatch.PollInterval <= 0 {
		errors = append(errors, "DISPATCH_POLL_INTERVAL must be positive")
	}

	// Validate import configuration
	if cfg.Import.MaxRows <= 0 {
		errors = append(errors, "IMPORT_MAX_ROWS must be positive")
	}
	if cfg.Import.MaxBytes <= 0 {
		errors = append(errors, "IMPORT_MAX_BYTES must be positive")
	}

	// Validate TLS configuration if enabled
	if cfg.Security.TLSEnabled {
		if cfg.Security.TLSCertFile == "" {
			errors = append(errors, "TLS_CERT_FILE is required when TLS is enabled")
		}
		if cfg.Security.TLSKeyFile == "" {
			errors = append(errors, "TLS_KEY_FILE is required when TLS is enabled")
		}
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
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
