// Package config builds the process configuration once at startup.
//
// Values come from an optional YAML file (CONFIG_FILE) and are then
// overridden by environment variables. The resulting Config is passed
// explicitly to every component; nothing reads the environment later.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 8000
	DefaultHost          = "0.0.0.0"
	DefaultTemboBaseURL  = "https://api.tembo.io"
	DefaultGitHubBaseURL = "https://api.github.com"
)

// Config holds everything the server needs to run.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Tembo  TemboConfig  `yaml:"tembo"`
	GitHub GitHubConfig `yaml:"github"`

	// AuthSecret enables the bearer JWT gate on /mcp when non-empty.
	AuthSecret string `yaml:"auth_secret"`

	Loki    LokiConfig    `yaml:"loki"`
	Tracing TracingConfig `yaml:"tracing"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type TemboConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type GitHubConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// LokiConfig configures the Grafana Loki push client. Logging to Loki is
// disabled unless URL, User and APIKey are all set.
type LokiConfig struct {
	URL    string `yaml:"url"`
	User   string `yaml:"user"`
	APIKey string `yaml:"api_key"`
	App    string `yaml:"app"`
}

func (l LokiConfig) Enabled() bool {
	return l.URL != "" && l.User != "" && l.APIKey != ""
}

// TracingConfig configures OpenTelemetry. Stdout exports spans and
// MetricsStdout exports tool-call metrics every MetricsInterval.
type TracingConfig struct {
	ServiceName     string        `yaml:"service_name"`
	Stdout          bool          `yaml:"stdout"`
	MetricsStdout   bool          `yaml:"metrics_stdout"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Tembo:           TemboConfig{BaseURL: DefaultTemboBaseURL},
		GitHub:          GitHubConfig{BaseURL: DefaultGitHubBaseURL},
		Loki:            LokiConfig{App: "temboxpoke-dev"},
		Tracing:         TracingConfig{ServiceName: "temboxpoke", MetricsInterval: time.Minute},
		ShutdownTimeout: 30 * time.Second,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads CONFIG_FILE (if set) and the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HOST", &c.Host)
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PORT %q", v)
		}
		c.Port = port
	}

	str("TEMBO_API_KEY", &c.Tembo.APIKey)
	str("TEMBO_API_BASE_URL", &c.Tembo.BaseURL)
	str("GITHUB_TOKEN", &c.GitHub.Token)
	str("GITHUB_API_BASE_URL", &c.GitHub.BaseURL)
	str("MCP_AUTH_SECRET", &c.AuthSecret)

	str("GRAFANA_LOKI_URL", &c.Loki.URL)
	str("GRAFANA_LOKI_USER", &c.Loki.User)
	str("GRAFANA_LOKI_API_KEY", &c.Loki.APIKey)
	str("APP_ENV", &c.Loki.App)

	str("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	if v, ok := lookup("OTEL_TRACES_STDOUT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid OTEL_TRACES_STDOUT %q", v)
		}
		c.Tracing.Stdout = b
	}
	if v, ok := lookup("OTEL_METRICS_STDOUT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid OTEL_METRICS_STDOUT %q", v)
		}
		c.Tracing.MetricsStdout = b
	}
	if v, ok := lookup("OTEL_METRIC_EXPORT_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid OTEL_METRIC_EXPORT_INTERVAL %q", v)
		}
		c.Tracing.MetricsInterval = d
	}

	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid SHUTDOWN_TIMEOUT %q", v)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.Tembo.BaseURL) == "" {
		return errors.New("tembo base url must not be empty")
	}
	if strings.TrimSpace(c.GitHub.BaseURL) == "" {
		return errors.New("github base url must not be empty")
	}
	return nil
}
