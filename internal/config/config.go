package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	AI       AIConfig       `yaml:"ai"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Calendar CalendarConfig `yaml:"calendar"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Server   ServerConfig   `yaml:"server"`
}

type GitHubConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type WebhookConfig struct {
	URL string `yaml:"url"`
}

type CalendarConfig struct {
	FeedURL string `yaml:"feed_url"`
	// Timezone is the single reference civil calendar for the whole
	// system; dates must never depend on the host default.
	Timezone string `yaml:"timezone"`
	// Fallback is what a scheduled run does when the feed cannot
	// classify the day: "run" or "skip".
	Fallback string `yaml:"fallback"`
}

type LedgerConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// CronSpec is the schedule for the daily run, in the configured
	// timezone.
	CronSpec string `yaml:"cron"`
}

// Load builds the config from defaults, an optional YAML file, and the
// environment, in that order of precedence (env wins).
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromEnv builds the config from defaults and environment only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func defaults() *Config {
	return &Config{
		Calendar: CalendarConfig{
			Timezone: "Asia/Shanghai",
			Fallback: "run",
		},
		Ledger: LedgerConfig{
			Path:          "standup.db",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			CronSpec: "30 9 * * *",
		},
	}
}

func (c *Config) applyEnv() {
	c.GitHub.Token = getEnvOrDefault("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.Username = getEnvOrDefault("GITHUB_USERNAME", c.GitHub.Username)

	c.AI.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.AI.BaseURL)
	c.AI.Model = getEnvOrDefault("OPENAI_MODEL", c.AI.Model)

	c.Webhook.URL = getEnvOrDefault("WEBHOOK_URL", c.Webhook.URL)

	c.Calendar.FeedURL = getEnvOrDefault("HOLIDAY_API_URL", c.Calendar.FeedURL)
	c.Calendar.Timezone = getEnvOrDefault("CALENDAR_TIMEZONE", c.Calendar.Timezone)
	c.Calendar.Fallback = getEnvOrDefault("CALENDAR_FALLBACK", c.Calendar.Fallback)

	c.Ledger.Path = getEnvOrDefault("LEDGER_PATH", c.Ledger.Path)
	if v := os.Getenv("LEDGER_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Ledger.RetentionDays = days
		}
	}

	c.Server.Addr = getEnvOrDefault("SERVER_ADDR", c.Server.Addr)
	c.Server.CronSpec = getEnvOrDefault("STANDUP_CRON", c.Server.CronSpec)
}

func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger path must not be empty")
	}
	if c.Ledger.RetentionDays <= 0 {
		return fmt.Errorf("ledger retention days must be positive, got %d", c.Ledger.RetentionDays)
	}
	if c.Calendar.Fallback != "run" && c.Calendar.Fallback != "skip" {
		return fmt.Errorf("calendar fallback must be run or skip, got %q", c.Calendar.Fallback)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
