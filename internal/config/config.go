// Package config loads the service configuration from an optional YAML
// file with WAYFINDER_* environment overrides layered on top.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"wayfinder/internal/llm"
)

// Config is the full configuration tree.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     llm.Config    `mapstructure:"llm"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig configures preference persistence. An empty path selects the
// in-memory store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures the component file logger.
type LogConfig struct {
	Level        string `mapstructure:"level"`
	MirrorStderr bool   `mapstructure:"mirror_stderr"`
}

// TracingConfig configures the OTLP trace exporter used in serve mode.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8087,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		LLM: llm.Config{
			Model:   "gpt-4o-mini",
			Timeout: 60,
		},
		Log: LogConfig{Level: "info"},
		Tracing: TracingConfig{
			Endpoint: "localhost:4318",
		},
	}
}

// Load reads configuration from path (optional) and the environment.
// Missing files are not an error; a malformed file is.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WAYFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	v.SetDefault("llm.api_key", defaults.LLM.APIKey)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("llm.timeout_seconds", defaults.LLM.Timeout)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.mirror_stderr", defaults.Log.MirrorStderr)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", defaults.Tracing.Endpoint)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("wayfinder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wayfinder")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields with hard requirements.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug/info/warn/error", c.Log.Level)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}
