package config

import (
	"fmt"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Command line flags that were set explicitly
// 2. Explicit environment overrides (PORT, CACHE_TTL_SECONDS, ...)
// 3. BADGES_* environment variables
// 4. Configuration file (config.yaml, or configPath when given)
// 5. Default values
//
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/datadog-badges/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("BADGES")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file: env vars and defaults only
	}

	overrideWithEnvVars(v)
	if flags != nil {
		applyFlags(v, flags)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	config.ContextRoot = NormalizeContextRoot(config.ContextRoot)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ConfigFileUsed reports which file Load would read, or "" when none exists.
func ConfigFileUsed(configPath string) string {
	if configPath != "" {
		return configPath
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/datadog-badges/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "production")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("context_root", "/")
	v.SetDefault("always_ok", false)
	v.SetDefault("log_level", "info")

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 15)
	v.SetDefault("cache.nodes", []string{"localhost:6379"})
	v.SetDefault("cache.db", 0)

	// Datadog defaults
	v.SetDefault("datadog.base_url", "https://api.datadoghq.com")
	v.SetDefault("datadog.timeout", 10*time.Second)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "datadog-badges")
}

// overrideWithEnvVars applies the unprefixed variables container platforms
// commonly inject.
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", strings.ToLower(logLevel))
	}

	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil {
			v.Set("cache.ttl", n)
		}
	}

	if baseURL := os.Getenv("DATADOG_BASE_URL"); baseURL != "" {
		v.Set("datadog.base_url", strings.TrimRight(baseURL, "/"))
	}

	// Valkey cache nodes
	if cacheNodes := os.Getenv("VALKEY_NODES"); cacheNodes != "" {
		nodes := strings.Split(cacheNodes, ",")
		for i, node := range nodes {
			nodes[i] = strings.TrimSpace(node)
		}
		v.Set("cache.nodes", nodes)
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("tracing.endpoint", endpoint)
		v.Set("tracing.enabled", true)
	}
}

// flag name -> config key
var flagKeys = map[string]string{
	"host":         "host",
	"port":         "port",
	"context-root": "context_root",
	"always-ok":    "always_ok",
	"log-level":    "log_level",
}

func applyFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		switch f.Value.Type() {
		case "int":
			if n, err := flags.GetInt(f.Name); err == nil {
				v.Set(key, n)
			}
		case "bool":
			if b, err := flags.GetBool(f.Name); err == nil {
				v.Set(key, b)
			}
		default:
			v.Set(key, f.Value.String())
		}
	})
}

func validateConfig(config *Config) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	if strings.ContainsAny(config.ContextRoot, "?#") {
		return fmt.Errorf("context root must be a plain path: %q", config.ContextRoot)
	}

	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	validBackends := []string{"memory", "valkey", "auto"}
	if !contains(validBackends, config.Cache.Backend) {
		return fmt.Errorf("invalid cache backend: %s", config.Cache.Backend)
	}

	if config.Cache.Backend != "memory" {
		if len(config.Cache.Nodes) == 0 {
			return fmt.Errorf("at least one Valkey cache node is required for backend %s", config.Cache.Backend)
		}
		for _, node := range config.Cache.Nodes {
			if err := ValidateRedisNode(node); err != nil {
				return err
			}
		}
	}

	if err := ValidateEndpoint(config.Datadog.BaseURL); err != nil {
		return fmt.Errorf("datadog base URL: %w", err)
	}

	if config.Datadog.Timeout <= 0 {
		return fmt.Errorf("datadog timeout must be positive")
	}

	if config.Monitoring.Enabled && !strings.HasPrefix(config.Monitoring.MetricsPath, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", config.Monitoring.MetricsPath)
	}

	if config.Tracing.Enabled && config.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	return nil
}

// NormalizeContextRoot turns "badges", "/badges/" or "" into "/badges" or
// "/", so a bare segment works the same as an absolute path.
func NormalizeContextRoot(root string) string {
	if root == "" {
		return "/"
	}
	return path.Clean("/" + root)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
