package config

import "time"

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	// ContextRoot prefixes every route, e.g. "/badges".
	ContextRoot string `mapstructure:"context_root" yaml:"context_root"`
	// AlwaysOK answers 200 even for failures, for clients that hide broken images.
	AlwaysOK bool   `mapstructure:"always_ok" yaml:"always_ok"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Cache      CacheConfig              `mapstructure:"cache" yaml:"cache"`
	Datadog    DatadogConfig            `mapstructure:"datadog" yaml:"datadog"`
	Accounts   map[string]AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Monitoring MonitoringConfig         `mapstructure:"monitoring" yaml:"monitoring"`
	Tracing    TracingConfig            `mapstructure:"tracing" yaml:"tracing"`
}

// CacheConfig selects the badge cache backend.
//
// memory: process-local. valkey: shared, startup fails if unreachable.
// auto: memory until the Valkey nodes answer, then valkey.
type CacheConfig struct {
	Backend  string   `mapstructure:"backend" yaml:"backend"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	DB       int      `mapstructure:"db" yaml:"db"`
	Password string   `mapstructure:"password" yaml:"-"`
}

type DatadogConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AccountConfig holds Datadog keys for one account. Environment variables
// take precedence over these.
type AccountConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"-"`
	AppKey string `mapstructure:"app_key" yaml:"-"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath string `mapstructure:"metrics_path" yaml:"metrics_path"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"` // OTLP gRPC host:port
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// CacheTTL returns the configured badge cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return joinHostPort(c.Host, c.Port)
}
