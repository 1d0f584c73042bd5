package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(envLookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:8000")
	}
	if cfg.Tembo.BaseURL != DefaultTemboBaseURL {
		t.Errorf("Tembo.BaseURL = %q, want %q", cfg.Tembo.BaseURL, DefaultTemboBaseURL)
	}
	if cfg.GitHub.BaseURL != DefaultGitHubBaseURL {
		t.Errorf("GitHub.BaseURL = %q, want %q", cfg.GitHub.BaseURL, DefaultGitHubBaseURL)
	}
	if cfg.Tembo.APIKey != "" || cfg.GitHub.Token != "" {
		t.Error("credentials should be empty by default")
	}
	if cfg.Loki.Enabled() {
		t.Error("loki should be disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	cfg, err := LoadFrom(envLookup(map[string]string{
		"PORT":                        "9090",
		"TEMBO_API_KEY":               "tk",
		"TEMBO_API_BASE_URL":          "https://tembo.internal/",
		"GITHUB_TOKEN":                "gh",
		"MCP_AUTH_SECRET":             "s3cret",
		"OTEL_TRACES_STDOUT":          "true",
		"OTEL_METRICS_STDOUT":         "1",
		"OTEL_METRIC_EXPORT_INTERVAL": "15s",
		"SHUTDOWN_TIMEOUT":            "5s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Tembo.APIKey != "tk" || cfg.GitHub.Token != "gh" {
		t.Errorf("credentials not loaded: %+v / %+v", cfg.Tembo, cfg.GitHub)
	}
	if cfg.Tembo.BaseURL != "https://tembo.internal/" {
		t.Errorf("Tembo.BaseURL = %q", cfg.Tembo.BaseURL)
	}
	if cfg.AuthSecret != "s3cret" {
		t.Errorf("AuthSecret = %q", cfg.AuthSecret)
	}
	if !cfg.Tracing.Stdout {
		t.Error("Tracing.Stdout should be true")
	}
	if !cfg.Tracing.MetricsStdout || cfg.Tracing.MetricsInterval != 15*time.Second {
		t.Errorf("metrics export not loaded: %+v", cfg.Tracing)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 5s", cfg.ShutdownTimeout)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric port", map[string]string{"PORT": "abc"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"bad bool", map[string]string{"OTEL_TRACES_STDOUT": "maybe"}},
		{"bad metrics bool", map[string]string{"OTEL_METRICS_STDOUT": "maybe"}},
		{"bad metrics interval", map[string]string{"OTEL_METRIC_EXPORT_INTERVAL": "often"}},
		{"bad duration", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(envLookup(tt.env)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "config.yaml")
	content := "port: 8100\ntembo:\n  api_key: from-file\n  base_url: https://file.example\ngithub:\n  token: file-token\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(envLookup(map[string]string{
		"CONFIG_FILE":   p,
		"TEMBO_API_KEY": "from-env",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8100 {
		t.Errorf("Port = %d, want 8100", cfg.Port)
	}
	if cfg.Tembo.APIKey != "from-env" {
		t.Errorf("Tembo.APIKey = %q, want env override", cfg.Tembo.APIKey)
	}
	if cfg.Tembo.BaseURL != "https://file.example" {
		t.Errorf("Tembo.BaseURL = %q", cfg.Tembo.BaseURL)
	}
	if cfg.GitHub.Token != "file-token" {
		t.Errorf("GitHub.Token = %q", cfg.GitHub.Token)
	}
	if cfg.GitHub.BaseURL != DefaultGitHubBaseURL {
		t.Errorf("GitHub.BaseURL = %q, want default kept", cfg.GitHub.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFrom(envLookup(map[string]string{"CONFIG_FILE": "/nonexistent/config.yaml"}))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
