package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App         AppConfig                 `json:"app"`
	Gateways    map[string]GatewayConfig  `json:"gateways"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Memory      MemoryConfig              `json:"memory"`
	SMTP        SMTPConfig                `json:"smtp"`
	Search      SearchConfig              `json:"search"`
	Attachments AttachmentsConfig         `json:"attachments"`
	Governance  GovernanceConfig          `json:"governance"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type SearchConfig struct {
	TopK         int  `json:"top_k"`
	FetchContent bool `json:"fetch_content"`
}

type AttachmentsConfig struct {
	Dir string `json:"dir"`
}

type GovernanceConfig struct {
	DeniedTools    []string `json:"denied_tools"`
	DeniedPatterns []string `json:"denied_patterns"`
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Attachments.Dir == "" {
		cfg.Attachments.Dir = "tmp"
	}

	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}
