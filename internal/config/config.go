package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultUsername and DefaultPassword are the Basic auth credentials used
	// when none are configured
	DefaultUsername = "admin"
	DefaultPassword = "password"

	// DefaultEndpoint is the benchmark target used when a request omits one
	DefaultEndpoint = "http://litellm.ai-sandbox.azure.to2cz.cz"

	// PathEnv names the environment variable pointing at a YAML config file
	PathEnv = "CONFIG_PATH"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Benchmark BenchmarkConfig `mapstructure:"benchmark"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig holds the Basic auth credentials for the benchmark endpoint.
// When PasswordHash is set it takes precedence over Password.
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt
}

// BenchmarkConfig holds defaults applied to API benchmark runs
type BenchmarkConfig struct {
	DefaultEndpoint string `mapstructure:"default_endpoint"`
	VerifyTLS       bool   `mapstructure:"verify_tls"`
}

// RateLimitConfig holds the per-client limit on benchmark requests
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // 0 disables limiting
	Burst             int `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadConfigured loads the file named by CONFIG_PATH when it is set, and
// falls back to LoadFromEnv otherwise. Environment variables override file
// values in both cases.
func LoadConfigured() (*Config, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return Load(path)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration primarily from environment variables
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from .env file if it exists
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Auth defaults
	v.SetDefault("auth.username", DefaultUsername)
	v.SetDefault("auth.password", DefaultPassword)
	v.SetDefault("auth.password_hash", "")

	// Benchmark defaults
	v.SetDefault("benchmark.default_endpoint", DefaultEndpoint)
	v.SetDefault("benchmark.verify_tls", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.requests_per_minute", 30)
	v.SetDefault("ratelimit.burst", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// BindEnv errors are non-fatal but should be logged
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	// Credentials
	bindEnv("auth.username", "BENCHMARK_API_USER")
	bindEnv("auth.password", "BENCHMARK_API_PASS")
	bindEnv("auth.password_hash", "BENCHMARK_API_PASS_HASH")

	// Benchmark
	bindEnv("benchmark.default_endpoint", "DEFAULT_ENDPOINT")
	bindEnv("benchmark.verify_tls", "BENCHMARK_VERIFY_TLS")

	// Server config
	bindEnv("server.host", "SERVER_HOST")
	bindEnv("server.port", "SERVER_PORT")
	bindEnv("server.shutdown_timeout", "SHUTDOWN_TIMEOUT")

	// Rate limiting
	bindEnv("ratelimit.requests_per_minute", "RATE_LIMIT_PER_MINUTE")
	bindEnv("ratelimit.burst", "RATE_LIMIT_BURST")

	// Logging
	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// UsesDefaultCredentials reports whether the built-in username and password
// are still in effect
func (c *Config) UsesDefaultCredentials() bool {
	return c.Auth.PasswordHash == "" &&
		c.Auth.Username == DefaultUsername &&
		c.Auth.Password == DefaultPassword
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Auth.Username == "" {
		return fmt.Errorf("BENCHMARK_API_USER must not be empty")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return fmt.Errorf("BENCHMARK_API_PASS or BENCHMARK_API_PASS_HASH is required")
	}

	if c.Benchmark.DefaultEndpoint == "" {
		return fmt.Errorf("DEFAULT_ENDPOINT must not be empty")
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1 when limiting is enabled")
	}

	return nil
}
