package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FOUNDRY_API_BASE_URL for
// api.base_url.
const EnvPrefix = "FOUNDRY"

// Config is the complete client configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig controls the request/response client.
type APIConfig struct {
	// BaseURL is the root every endpoint path is joined to.
	BaseURL string `mapstructure:"base_url"`
	// RequestTimeout bounds REST calls. Streams are never bounded.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DirectoryConfig controls session list polling.
type DirectoryConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// StreamConfig selects the run channel transport.
// Options: "sse", "websocket"
type StreamConfig struct {
	Transport string `mapstructure:"transport"`
}

type LoggingConfig struct {
	// Level options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// File receives logs instead of stderr when set. The console discards
	// logs without it, since it owns the terminal.
	File string `mapstructure:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api",
			RequestTimeout: 30 * time.Second,
		},
		Directory: DirectoryConfig{
			RefreshInterval: 3 * time.Second,
		},
		Stream: StreamConfig{
			Transport: TransportSSE,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("api.base_url", defaults.API.BaseURL)
	viper.SetDefault("api.request_timeout", defaults.API.RequestTimeout)
	viper.SetDefault("directory.refresh_interval", defaults.Directory.RefreshInterval)
	viper.SetDefault("stream.transport", defaults.Stream.Transport)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Init prepares viper: defaults, the config file and environment
// overrides. An explicit cfgFile must exist; the default one may not.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from viper and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "foundry")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foundry"
	}
	return filepath.Join(home, ".config", "foundry")
}

// ConfigFile returns the path to the default config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
