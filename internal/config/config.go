// Package config loads chatrelay configuration from a JSONC file and the
// environment. Environment variables take precedence over file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Defaults.
const (
	DefaultPort           = 8000
	DefaultDatabasePath   = "chat.db"
	DefaultModel          = "openai/gpt-4o-mini"
	DefaultHistoryWindow  = 20
	DefaultMaxConnections = 25
	DefaultTokenTTL       = 30 // minutes
)

// Config holds the full server configuration.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// DatabasePath is the sqlite database file.
	DatabasePath string `json:"database"`

	// SecretKey signs access tokens. Required.
	SecretKey string `json:"secretKey"`
	// TokenTTLMinutes is the access token lifetime.
	TokenTTLMinutes int `json:"tokenTTLMinutes"`

	// Model selects the completion backend, in "provider/model" form
	// (e.g. "openai/gpt-4o-mini", "anthropic/claude-3-5-haiku-20241022").
	Model           string `json:"model"`
	OpenAIAPIKey    string `json:"openaiApiKey"`
	AnthropicAPIKey string `json:"anthropicApiKey"`

	// HistoryWindow is the number of prior turns loaded to prime a
	// completion.
	HistoryWindow int `json:"historyWindow"`
	// MaxConnections bounds concurrently open streaming connections.
	MaxConnections int `json:"maxConnections"`

	AllowedOrigins []string `json:"allowedOrigins"`

	LogLevel string `json:"logLevel"`
	LogJSON  bool   `json:"logJSON"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            DefaultPort,
		DatabasePath:    DefaultDatabasePath,
		TokenTTLMinutes: DefaultTokenTTL,
		Model:           DefaultModel,
		HistoryWindow:   DefaultHistoryWindow,
		MaxConnections:  DefaultMaxConnections,
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
		LogLevel:        "INFO",
		LogJSON:         true,
	}
}

// Load builds the configuration from defaults, an optional JSONC file, and
// environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		// Default config file, if present.
		for _, candidate := range []string{"chatrelay.json", "chatrelay.jsonc"} {
			if _, err := os.Stat(candidate); err == nil {
				if err := loadFile(candidate, cfg); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration errors that would prevent startup.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("config: SECRET_KEY is not set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("config: history window must be positive, got %d", c.HistoryWindow)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("config: max connections must be positive, got %d", c.MaxConnections)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadFile merges a single JSONC config file into cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	data = jsonc.ToJSON(data)

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variables on top of file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			cfg.TokenTTLMinutes = ttl
		}
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryWindow = n
		}
	}
	if v := os.Getenv("MAX_WS_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
}
