package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Discord    DiscordConfig    `yaml:"discord"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Storage    StorageConfig    `yaml:"storage"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Sentiment  SentimentConfig  `yaml:"sentiment"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Limits     LimitsConfig     `yaml:"limits"`
	Log        LogConfig        `yaml:"log"`
}

type DiscordConfig struct {
	Token  string `yaml:"token"`
	Prefix string `yaml:"prefix"`
}

type SummarizerConfig struct {
	Type        string   `yaml:"type"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
}

// DefaultTemperature is used when summarizer.temperature is absent. An
// explicit 0 is kept.
const DefaultTemperature = 0.7

// TemperatureOrDefault returns the configured temperature or
// DefaultTemperature.
func (c SummarizerConfig) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type SchedulerConfig struct {
	DefaultTime string `yaml:"default_time"`
	Timezone    string `yaml:"timezone"`
}

type SentimentConfig struct {
	URL string `yaml:"url"`
}

type PublisherConfig struct {
	WebhookURL string      `yaml:"webhook_url"`
	Web        WebConfig   `yaml:"web"`
	Email      EmailConfig `yaml:"email"`
}

// EmailConfig enables the daily report mail when SMTPHost is set.
type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type LimitsConfig struct {
	UpdateMeMessages  int `yaml:"updateme_messages"`
	SummarizeMessages int `yaml:"summarize_messages"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// applyEnv fills secrets that the file left empty from the conventional
// environment variables.
func applyEnv(cfg *Config) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	if cfg.Summarizer.APIKey == "" {
		switch cfg.Summarizer.Type {
		case "anthropic":
			cfg.Summarizer.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.Summarizer.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Discord.Prefix == "" {
		cfg.Discord.Prefix = "!"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "openai"
	}
	if cfg.Summarizer.Model == "" {
		switch cfg.Summarizer.Type {
		case "anthropic":
			cfg.Summarizer.Model = "claude-sonnet-4-20250514"
		default:
			cfg.Summarizer.Model = "gpt-4o-mini"
		}
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 1000
	}
	if cfg.Summarizer.Temperature == nil {
		t := DefaultTemperature
		cfg.Summarizer.Temperature = &t
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "."
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "discord-digest:"
	}
	if cfg.Scheduler.DefaultTime == "" {
		cfg.Scheduler.DefaultTime = "20:00"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Sentiment.URL == "" {
		cfg.Sentiment.URL = "https://api.alternative.me/fng/"
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
	if cfg.Limits.UpdateMeMessages == 0 {
		cfg.Limits.UpdateMeMessages = 1000
	}
	if cfg.Limits.SummarizeMessages == 0 {
		cfg.Limits.SummarizeMessages = 2000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("config: discord.token is required (set DISCORD_TOKEN env var)")
	}
	switch cfg.Summarizer.Type {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unsupported summarizer type %q (supported: openai, anthropic)", cfg.Summarizer.Type)
	}
	if cfg.Summarizer.APIKey == "" {
		return fmt.Errorf("config: summarizer.api_key is required (set OPENAI_API_KEY or ANTHROPIC_API_KEY env var)")
	}
	switch cfg.Storage.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("config: unsupported storage backend %q (supported: file, redis, memory)", cfg.Storage.Backend)
	}
	if _, err := time.Parse("15:04", cfg.Scheduler.DefaultTime); err != nil {
		return fmt.Errorf("config: scheduler.default_time %q must be HH:MM", cfg.Scheduler.DefaultTime)
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("config: scheduler.timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	if email := cfg.Publisher.Email; email.SMTPHost != "" {
		if email.From == "" {
			return fmt.Errorf("config: publisher.email.from is required when smtp_host is set")
		}
		if len(email.To) == 0 {
			return fmt.Errorf("config: publisher.email.to is required when smtp_host is set")
		}
	}
	if cfg.Limits.UpdateMeMessages < 0 || cfg.Limits.SummarizeMessages < 0 {
		return fmt.Errorf("config: limits must be positive")
	}
	return nil
}

// Location returns the scheduler's time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration. A missing file is not an error: every
// setting has a default and the secrets can come from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
