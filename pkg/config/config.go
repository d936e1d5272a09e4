package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete monitord configuration
type Config struct {
	// HTTP listeners
	Port        int `yaml:"port"`         // metrics API port
	MetricsPort int `yaml:"metrics_port"` // Prometheus exporter port

	Database   DatabaseConfig   `yaml:"database"`
	Cloudflare CloudflareConfig `yaml:"cloudflare"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Health     HealthConfig     `yaml:"health"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	LogFile  string `yaml:"log_file"` // log file name, empty for stdout only

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds Immich PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CloudflareConfig holds CloudFlare API settings
type CloudflareConfig struct {
	ZoneID   string `yaml:"zone_id"`
	APIToken string `yaml:"api_token"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // e.g. "10s"
}

// SamplerConfig controls the background snapshot sampler
type SamplerConfig struct {
	Interval   string `yaml:"interval"`  // e.g. "5m"
	Retention  string `yaml:"retention"` // e.g. "168h"
	SnapshotDB string `yaml:"snapshot_db"`
}

// HealthConfig mirrors the container health-check discipline
type HealthConfig struct {
	ProbeInterval string `yaml:"probe_interval"` // e.g. "30s"
	ProbeTimeout  string `yaml:"probe_timeout"`  // e.g. "5s"
	GracePeriod   string `yaml:"grace_period"`   // e.g. "5s"
	MaxFailures   int    `yaml:"max_failures"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Port:        8090,
		MetricsPort: 9105,
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			Name:         "immich",
			User:         "immich",
			Password:     "immich",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Cloudflare: CloudflareConfig{
			BaseURL: "https://api.cloudflare.com/client/v4",
			Timeout: "10s",
		},
		Sampler: SamplerConfig{
			Interval:   "5m",
			Retention:  "168h",
			SnapshotDB: "snapshots.db",
		},
		Health: HealthConfig{
			ProbeInterval: "30s",
			ProbeTimeout:  "5s",
			GracePeriod:   "5s",
			MaxFailures:   3,
		},
		LogLevel:       "INFO",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides. An empty path loads defaults plus environment.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv applies environment variable overrides. The variable names
// match the ones the deployment has always used.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MetricsPort = p
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.Database.Port = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASS"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("CF_ZONE_ID"); v != "" {
		c.Cloudflare.ZoneID = v
	}
	if v := os.Getenv("CF_API_KEY"); v != "" {
		c.Cloudflare.APIToken = v
	}
	// An explicitly empty SNAPSHOT_DB selects the in-memory store,
	// so presence matters here, not just a non-empty value.
	if v, ok := os.LookupEnv("SNAPSHOT_DB"); ok {
		c.Sampler.SnapshotDB = v
	}
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port must differ from API port")
	}
	for name, value := range map[string]string{
		"cloudflare.timeout":    c.Cloudflare.Timeout,
		"sampler.interval":      c.Sampler.Interval,
		"sampler.retention":     c.Sampler.Retention,
		"health.probe_interval": c.Health.ProbeInterval,
		"health.probe_timeout":  c.Health.ProbeTimeout,
		"health.grace_period":   c.Health.GracePeriod,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Health.MaxFailures < 1 {
		return fmt.Errorf("health.max_failures must be at least 1")
	}
	return nil
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}

// CloudflareTimeout returns the parsed API client timeout
func (c *Config) CloudflareTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Cloudflare.Timeout)
	return d
}

// SampleInterval returns the parsed sampler interval
func (c *Config) SampleInterval() time.Duration {
	d, _ := time.ParseDuration(c.Sampler.Interval)
	return d
}

// SampleRetention returns the parsed snapshot retention horizon
func (c *Config) SampleRetention() time.Duration {
	d, _ := time.ParseDuration(c.Sampler.Retention)
	return d
}

// ProbeInterval returns the parsed health probe interval
func (c *Config) ProbeInterval() time.Duration {
	d, _ := time.ParseDuration(c.Health.ProbeInterval)
	return d
}

// ProbeTimeout returns the parsed health probe timeout
func (c *Config) ProbeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Health.ProbeTimeout)
	return d
}

// GracePeriod returns the parsed startup grace period
func (c *Config) GracePeriod() time.Duration {
	d, _ := time.ParseDuration(c.Health.GracePeriod)
	return d
}
