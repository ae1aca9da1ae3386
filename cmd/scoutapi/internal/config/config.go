package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "SCOUT"

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). postgres:// selects PostgreSQL, anything else SQLite.
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL of the API, used by clients and in logs
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	// Log output format: text or json
	LogFormat string

	// Origins allowed by CORS; empty disables the CORS middleware
	CORSAllowedOrigins []string

	Auth          AuthConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
}

// AuthConfig configures bearer token verification and issuance.
type AuthConfig struct {
	// TokenSecret signs and verifies HS256 actor tokens
	TokenSecret string

	// TokenIssuer is the iss claim written and required on tokens
	TokenIssuer string

	// TokenTTL is the lifetime of tokens minted by `scoutapi token issue`
	TokenTTL time.Duration
}

// CacheConfig sizes the in-process caches.
type CacheConfig struct {
	// MasterDataSize bounds the farm/greenhouse/field block lookup cache
	MasterDataSize int

	// MasterDataTTL bounds how stale a cached master data record may be
	MasterDataTTL time.Duration
}

// ObservabilityConfig holds tracing and metrics settings.
type ObservabilityConfig struct {
	// OTLPEndpoint enables tracing when set (host:port)
	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool
	// SampleRatio is the fraction of root spans kept, in [0, 1]
	SampleRatio float64

	ServiceName    string
	ServiceVersion string
	Environment    string

	// MetricsEnabled exposes Prometheus metrics at /metrics
	MetricsEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("auth.token_issuer", "scoutapi")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("cache.master_data_size", 512)
	v.SetDefault("cache.master_data_ttl", "5m")
	v.SetDefault("observability.otlp_protocol", "http/protobuf")
	v.SetDefault("observability.sample_ratio", 1.0)
	v.SetDefault("observability.service_name", "scoutapi")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
}

// Load reads configuration from the global viper instance: config file values
// (if a file was read), SCOUT_ prefixed environment variables and defaults.
// Nested keys are fetched one by one because AutomaticEnv does not populate
// nested keys that only exist in the environment.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:        v.GetString("database_url"),
		ServerAddr:         v.GetString("server_addr"),
		ServerURL:          v.GetString("server_url"),
		MaxDBConnections:   v.GetInt("max_db_connections"),
		Debug:              v.GetBool("debug"),
		LogFormat:          v.GetString("log_format"),
		CORSAllowedOrigins: v.GetStringSlice("cors_allowed_origins"),
		Auth: AuthConfig{
			TokenSecret: v.GetString("auth.token_secret"),
			TokenIssuer: v.GetString("auth.token_issuer"),
			TokenTTL:    v.GetDuration("auth.token_ttl"),
		},
		Cache: CacheConfig{
			MasterDataSize: v.GetInt("cache.master_data_size"),
			MasterDataTTL:  v.GetDuration("cache.master_data_ttl"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
			OTLPProtocol:   v.GetString("observability.otlp_protocol"),
			OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
			SampleRatio:    v.GetFloat64("observability.sample_ratio"),
			ServiceName:    v.GetString("observability.service_name"),
			ServiceVersion: v.GetString("observability.service_version"),
			Environment:    v.GetString("observability.environment"),
			MetricsEnabled: v.GetBool("observability.metrics_enabled"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is required")
	}
	if c.MaxDBConnections < 1 {
		return fmt.Errorf("max_db_connections must be positive, got %d", c.MaxDBConnections)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Cache.MasterDataSize < 1 {
		return fmt.Errorf("cache.master_data_size must be positive, got %d", c.Cache.MasterDataSize)
	}
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("observability.sample_ratio must be between 0 and 1, got %g", c.Observability.SampleRatio)
	}
	return nil
}
