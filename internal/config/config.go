// Package config provides configuration management for the roomchat bot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfigurationMissing is returned when required configuration is absent or unusable
var ErrConfigurationMissing = errors.New("required configuration missing")

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	EnvPrefix = "ROOMCHAT"
)

// ChatConfig holds the settings every conversation is created with
type ChatConfig struct {
	HistorySize         int    `mapstructure:"history_size"` // Number of user/assistant exchanges remembered
	DefaultSystemPrompt string `mapstructure:"default_system_prompt"`
}

// Validate checks that conversations can be created from this configuration
func (c ChatConfig) Validate() error {
	if strings.TrimSpace(c.DefaultSystemPrompt) == "" {
		return fmt.Errorf("%w: chat.default_system_prompt", ErrConfigurationMissing)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: chat.history_size must be positive, got %d", ErrConfigurationMissing, c.HistorySize)
	}
	return nil
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	MaxOutputTokens int64         `mapstructure:"max_output_tokens"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type GitHubConfig struct {
	Token        string        `mapstructure:"token"`
	Repo         string        `mapstructure:"repo"` // owner/repo
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Config holds the configuration for the bot
type Config struct {
	BotName   string          `mapstructure:"bot_name"`
	Chat      ChatConfig      `mapstructure:"chat"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot_name", "")
	v.SetDefault("chat.history_size", 5)
	v.SetDefault("chat.default_system_prompt", "")
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_output_tokens", 1024)
	v.SetDefault("llm.request_timeout", 90*time.Second)
	v.SetDefault("llm.max_retries", 5)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.poll_interval", time.Minute)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
}

// Load reads configuration from the optional config file at path (JSON, YAML, or anything else viper understands),
// then applies ROOMCHAT_* environment overrides. A .env file in the working directory is loaded into the environment
// first, if present
func Load(path string) (Config, error) {
	// A missing .env file is normal
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	return cfg, nil
}

// Validate checks if the required configuration is present
func (c Config) Validate() error {
	if err := c.Chat.Validate(); err != nil {
		return err
	}
	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: anthropic.api_key", ErrConfigurationMissing)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: openai.api_key", ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("%w: unsupported llm.provider '%s'", ErrConfigurationMissing, c.LLM.Provider)
	}
	return nil
}

// ValidateGitHub checks the settings needed by the GitHub channel
func (c Config) ValidateGitHub() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("%w: github.token", ErrConfigurationMissing)
	}
	if parts := strings.Split(c.GitHub.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: github.repo must be in the format 'owner/repo', got '%s'", ErrConfigurationMissing, c.GitHub.Repo)
	}
	if c.GitHub.PollInterval <= 0 {
		return fmt.Errorf("%w: github.poll_interval must be positive", ErrConfigurationMissing)
	}
	return nil
}
