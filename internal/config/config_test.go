package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000/api")
	}
	if cfg.API.RequestTimeout != 30*time.Second {
		t.Errorf("API.RequestTimeout = %v, want 30s", cfg.API.RequestTimeout)
	}
	if cfg.Directory.RefreshInterval != 3*time.Second {
		t.Errorf("Directory.RefreshInterval = %v, want 3s", cfg.Directory.RefreshInterval)
	}
	if cfg.Stream.Transport != TransportSSE {
		t.Errorf("Stream.Transport = %q, want %q", cfg.Stream.Transport, TransportSSE)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should validate, got %v", ValidationErrors(errs))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"unsupported scheme", func(c *Config) { c.API.BaseURL = "ftp://localhost/api" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.RequestTimeout = 0 }, "api.request_timeout"},
		{"fast polling", func(c *Config) { c.Directory.RefreshInterval = 100 * time.Millisecond }, "directory.refresh_interval"},
		{"unknown transport", func(c *Config) { c.Stream.Transport = "grpc" }, "stream.transport"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("expected 1 validation error, got %d: %v", len(errs), errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	want := "2 validation errors:\n  1. a: bad (got: 1)\n  2. b: worse (got: 2)\n"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadFromFileAndEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api:\n  base_url: https://foundry.example.com/api\n  request_timeout: 10s\ndirectory:\n  refresh_interval: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("FOUNDRY_STREAM_TRANSPORT", "websocket")

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://foundry.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout != 10*time.Second {
		t.Errorf("API.RequestTimeout = %v, want 10s", cfg.API.RequestTimeout)
	}
	if cfg.Directory.RefreshInterval != 5*time.Second {
		t.Errorf("Directory.RefreshInterval = %v, want 5s", cfg.Directory.RefreshInterval)
	}
	if cfg.Stream.Transport != TransportWebsocket {
		t.Errorf("Stream.Transport = %q, want %q", cfg.Stream.Transport, TransportWebsocket)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FOUNDRY_LOGGING_LEVEL", "loud")

	if err := Init(""); err != nil {
		t.Fatalf("Init() without a config file should succeed, got %v", err)
	}
	_, err := Load()
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "logging.level" {
		t.Errorf("expected a logging.level error, got %v", errs)
	}
}

func TestInitMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := Init(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got, want := ConfigDir(), filepath.Join(dir, "foundry"); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
	if got, want := ConfigFile(), filepath.Join(dir, "foundry", "config.yaml"); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}
