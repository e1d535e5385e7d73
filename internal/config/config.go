// Package config loads settings from the config file, environment, and
// flags, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	Provider     string          `mapstructure:"provider"`
	Agent        string          `mapstructure:"agent"`
	Instructions string          `mapstructure:"instructions"`
	WorkDir      string          `mapstructure:"workdir"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Tools        ToolsConfig     `mapstructure:"tools"`
	Session      SessionConfig   `mapstructure:"session"`
	Log          LogConfig       `mapstructure:"log"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ToolsConfig selects which tools the agent may call.
type ToolsConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// SessionConfig controls transcript persistence.
type SessionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. configPath overrides the default search path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("provider", "anthropic")
	v.SetDefault("session.enabled", true)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ATELIER")
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", "ATELIER_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("openai.api_key", "ATELIER_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("provider", "ATELIER_PROVIDER")
	_ = v.BindEnv("log.level", "ATELIER_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine unless one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			if configPath == "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			if _, statErr := os.Stat(configPath); statErr != nil {
				return nil, fmt.Errorf("config file: %w", statErr)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigDir returns the user config directory for atelier.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "atelier")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "atelier")
}

// DefaultDataDir returns the user data directory for atelier.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "atelier")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "atelier")
}
