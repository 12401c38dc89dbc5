package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Database  DatabaseConfig   `json:"database"`
	Agent     AgentConfig      `json:"agent"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // openai|anthropic
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// AgentConfig tunes the orchestration core. Zero values fall back to the
// defaults applied in Load.
type AgentConfig struct {
	Model           string `json:"model"`
	MaxToolRounds   int    `json:"max_tool_rounds"`
	MaxRetries      int    `json:"max_retries"`
	RetryDelayMS    int    `json:"retry_delay_ms"`
	CallTimeoutSec  int    `json:"call_timeout_sec"`
	LookbackDays    int    `json:"lookback_days"`
	MaxActivities   int    `json:"max_activities"`
	SessionIdleMins int    `json:"session_idle_mins"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable references
// and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	a := &c.Agent
	if a.MaxToolRounds == 0 {
		a.MaxToolRounds = 5
	}
	if a.MaxRetries == 0 {
		a.MaxRetries = 2
	}
	if a.RetryDelayMS == 0 {
		a.RetryDelayMS = 500
	}
	if a.CallTimeoutSec == 0 {
		a.CallTimeoutSec = 30
	}
	if a.LookbackDays == 0 {
		a.LookbackDays = 7
	}
	if a.MaxActivities == 0 {
		a.MaxActivities = 50
	}
	if a.SessionIdleMins == 0 {
		a.SessionIdleMins = 30
	}
}
