// Package config loads gateway configuration from an optional YAML file with
// environment variable overrides. Precedence: defaults < file < environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/scoremilk/chat-gateway/internal/agent"
)

// AppConfig holds all gateway configuration.
type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name"`
	Environment string `env:"ENVIRONMENT" yaml:"environment"`

	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	LLM        LLMConfig        `yaml:"llm"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Agent      AgentConfig      `yaml:"agent"`
	Airtable   AirtableConfig   `yaml:"airtable"`
	Store      StoreConfig      `yaml:"store"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"PORT" yaml:"port"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" yaml:"write_timeout"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// LLMConfig selects the agent provider.
type LLMConfig struct {
	// Provider is "openai" or "claude".
	Provider string `env:"LLM_PROVIDER" yaml:"provider"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY" yaml:"api_key"`
	Model  string `env:"OPENAI_MODEL" yaml:"model"`
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model  string `env:"CLAUDE_MODEL" yaml:"model"`
}

// AgentConfig holds agent defaults.
type AgentConfig struct {
	DefaultPersona  string `env:"DEFAULT_PERSONA_NAME" yaml:"default_persona"`
	DefaultPlatform string `env:"DEFAULT_PLATFORM_NAME" yaml:"default_platform"`
	MemoryWindow    int    `env:"AGENT_MEMORY_WINDOW" yaml:"memory_window"`
}

// AirtableConfig holds the upstream content-source settings.
type AirtableConfig struct {
	APIKey           string `env:"AIRTABLE_API_KEY" yaml:"api_key"`
	BaseID           string `env:"AIRTABLE_BASE_ID" yaml:"base_id"`
	PersonaTableID   string `env:"AIRTABLE_PERSONA_TABLE_ID" yaml:"persona_table_id"`
	GamesTableID     string `env:"AIRTABLE_GAMES_TABLE_ID" yaml:"games_table_id"`
	PlatformsTableID string `env:"AIRTABLE_PLATFORMS_TABLE_ID" yaml:"platforms_table_id"`
}

// StoreConfig holds data refresh settings.
type StoreConfig struct {
	RefreshInterval time.Duration `env:"PERSONA_REFRESH_INTERVAL" yaml:"refresh_interval"`
	CacheTTL        time.Duration `env:"PERSONA_CACHE_TTL" yaml:"cache_ttl"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	MetricsEnabled bool `env:"METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPort    int  `env:"METRICS_PORT" yaml:"metrics_port"`
}

// Default returns the configuration defaults applied before file and
// environment overrides.
func Default() AppConfig {
	return AppConfig{
		ServiceName: "chat-gateway",
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Provider: agent.ProviderOpenAI,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-20241022",
		},
		Agent: AgentConfig{
			DefaultPersona:  "Milk Man",
			DefaultPlatform: "Score Milk",
			MemoryWindow:    agent.DefaultWindowSize,
		},
		Store: StoreConfig{
			RefreshInterval: 5 * time.Minute,
			CacheTTL:        5 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
			MetricsPort:    9090,
		},
	}
}

// Load reads configuration from the optional YAML file at path, then applies
// environment variable overrides. An empty path skips the file step; a
// missing file is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return AppConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return AppConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c AppConfig) Validate() error {
	var result error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		result = multierror.Append(result, fmt.Errorf("log level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	switch c.LLM.Provider {
	case agent.ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required when LLM provider is %q", agent.ProviderOpenAI))
		}
	case agent.ProviderClaude:
		if c.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM provider is %q", agent.ProviderClaude))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("LLM provider must be %q or %q, got %q", agent.ProviderOpenAI, agent.ProviderClaude, c.LLM.Provider))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server port must be in (0, 65535], got %d", c.Server.Port))
	}

	if c.Store.RefreshInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("refresh interval must be positive, got %s", c.Store.RefreshInterval))
	}
	if c.Store.CacheTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("cache TTL must be positive, got %s", c.Store.CacheTTL))
	}

	return result
}
