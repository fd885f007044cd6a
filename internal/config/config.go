package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models senryaku.yml.
type Config struct {
	Server struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Briefing struct {
		// DefaultBlocks is used when no check-in exists for the day.
		DefaultBlocks int    `yaml:"default_blocks"`
		Cron          string `yaml:"cron"`
	} `yaml:"briefing"`
	Review struct {
		Cron string `yaml:"cron"`
	} `yaml:"review"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type WebhookConfig struct {
	URL     string `yaml:"url"`
	Type    string `yaml:"type"` // ntfy, telegram, generic
	Secret  string `yaml:"secret"`
	Enabled *bool  `yaml:"enabled"`
	// Events filters delivered event types; empty means all.
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Briefing.DefaultBlocks < 0 {
		return fmt.Errorf("config.briefing.default_blocks must be >= 0")
	}
	switch c.Webhook.Type {
	case "", "ntfy", "telegram", "generic":
	default:
		return fmt.Errorf("config.webhook.type must be ntfy, telegram or generic")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "senryaku.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  api_key: change-me
  base_url: http://localhost:8080

briefing:
  default_blocks: 4
  cron: "0 7 * * *"

review:
  cron: "0 18 * * 0"

webhook:
  url: ""
  type: ntfy
`
