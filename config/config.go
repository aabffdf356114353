// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	Version        string      `mapstructure:"VERSION"`
}

// RedisConfig holds Redis connection details for the persistent cache.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS"`
	Password     string `mapstructure:"PASSWORD"`
	DB           int    `mapstructure:"DB"`
	UseTLS       bool   `mapstructure:"USE_TLS"`
	PoolSize     int    `mapstructure:"POOL_SIZE"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS"`
}

// SupabaseConfig holds the city-persistence backend credentials.
type SupabaseConfig struct {
	URL       string `mapstructure:"URL"`
	AnonKey   string `mapstructure:"ANON_KEY"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

// IsConfigured reports whether the Supabase backend can be reached at all.
// Missing credentials fail fast before any network attempt.
func (c *SupabaseConfig) IsConfigured() bool {
	return c.URL != "" && c.AnonKey != ""
}

// WeatherConfig holds the weather provider credentials and endpoints.
type WeatherConfig struct {
	APIKey  string `mapstructure:"API_KEY"`
	BaseURL string `mapstructure:"BASE_URL"`
	GeoURL  string `mapstructure:"GEO_URL"`
}

// CacheConfig holds per-category cache expiry. TTLs are fixed policy values
// but overridable for staging environments.
type CacheConfig struct {
	WeatherTTL  time.Duration `mapstructure:"WEATHER_TTL"`
	ForecastTTL time.Duration `mapstructure:"FORECAST_TTL"`
	CitiesTTL   time.Duration `mapstructure:"CITIES_TTL"`
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER"`
	Redis    RedisConfig    `mapstructure:"REDIS"`
	Supabase SupabaseConfig `mapstructure:"SUPABASE"`
	Weather  WeatherConfig  `mapstructure:"WEATHER"`
	Cache    CacheConfig    `mapstructure:"CACHE"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("WEATHER.BASE_URL", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("WEATHER.GEO_URL", "https://api.openweathermap.org/geo/1.0")
	v.SetDefault("CACHE.WEATHER_TTL", 10*time.Minute)
	v.SetDefault("CACHE.FORECAST_TTL", 30*time.Minute)
	v.SetDefault("CACHE.CITIES_TTL", time.Hour)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"SUPABASE.URL", "SUPABASE_URL"},
		{"SUPABASE.ANON_KEY", "SUPABASE_ANON_KEY"},
		{"SUPABASE.JWT_SECRET", "SUPABASE_JWT_SECRET"},
		{"WEATHER.API_KEY", "OPENWEATHERMAP_API_KEY"},
		{"WEATHER.BASE_URL", "OPENWEATHERMAP_BASE_URL"},
		{"WEATHER.GEO_URL", "OPENWEATHERMAP_GEO_URL"},
		{"CACHE.WEATHER_TTL", "CACHE_WEATHER_TTL"},
		{"CACHE.FORECAST_TTL", "CACHE_FORECAST_TTL"},
		{"CACHE.CITIES_TTL", "CACHE_CITIES_TTL"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"redis_address", cfg.Redis.Address,
		"supabase_url", cfg.Supabase.URL,
		"weather_api_key", logger.MaskSensitiveString(cfg.Weather.APIKey, 3, 2),
	)
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.Supabase.URL != "" {
		parsed, err := url.Parse(cfg.Supabase.URL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid supabase URL: %s", cfg.Supabase.URL)
		}
	} else {
		log.Warn("SUPABASE_URL not set; city persistence is disabled until configured")
	}
	if cfg.Supabase.URL != "" && cfg.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase anon key is required when supabase URL is set")
	}

	if cfg.Weather.APIKey == "" {
		log.Warn("OPENWEATHERMAP_API_KEY not set; weather fetches will fail fast as not-configured")
	}

	if cfg.Cache.WeatherTTL <= 0 || cfg.Cache.ForecastTTL <= 0 || cfg.Cache.CitiesTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
