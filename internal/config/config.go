package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RestartReshuffle = "reshuffle"
	RestartRefetch   = "refetch"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Source  SourceConfig `yaml:"source"`
	Session struct {
		Restart string `yaml:"restart"`
	} `yaml:"session"`
	UI  UIConfig  `yaml:"ui"`
	Log LogConfig `yaml:"log"`
}

// SourceConfig describes where question banks are fetched from.
type SourceConfig struct {
	DefaultBank string       `yaml:"default_bank"`
	Timeout     string       `yaml:"timeout"`
	Banks       []BankConfig `yaml:"banks"`
}

// BankConfig is one upstream trivia endpoint.
type BankConfig struct {
	ID     string            `yaml:"id"`
	URL    string            `yaml:"url"`
	Shape  string            `yaml:"shape"`
	APIKey string            `yaml:"api_key"`
	Params map[string]string `yaml:"params"`
}

// UIConfig holds presentation flags shared by the terminal and web clients.
type UIConfig struct {
	ShowUserName      bool `yaml:"show_user_name"`
	ProgressiveReveal bool `yaml:"progressive_reveal"`
	NoColor           bool `yaml:"no_color"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Validate rejects unknown policies and incomplete bank definitions.
func (c Config) Validate() error {
	switch c.Session.Restart {
	case RestartReshuffle, RestartRefetch:
	default:
		return fmt.Errorf("session.restart: unknown policy %q (expected %s|%s)", c.Session.Restart, RestartReshuffle, RestartRefetch)
	}
	seen := map[string]struct{}{}
	for i, bank := range c.Source.Banks {
		if bank.ID == "" {
			return fmt.Errorf("source.banks[%d].id is required", i)
		}
		if _, ok := seen[bank.ID]; ok {
			return fmt.Errorf("source.banks[%d]: duplicate id %q", i, bank.ID)
		}
		seen[bank.ID] = struct{}{}
		if bank.URL == "" {
			return fmt.Errorf("source.banks[%d].url is required", i)
		}
		switch bank.Shape {
		case "auto", "flat", "keyed":
		default:
			return fmt.Errorf("source.banks[%d].shape: unknown shape %q", i, bank.Shape)
		}
	}
	if _, err := time.ParseDuration(c.Source.Timeout); err != nil {
		return fmt.Errorf("source.timeout: %w", err)
	}
	return nil
}

// Bank returns the bank definition with the given id.
func (c Config) Bank(id string) (BankConfig, bool) {
	for _, bank := range c.Source.Banks {
		if bank.ID == id {
			return bank, true
		}
	}
	return BankConfig{}, false
}

func (c *Config) applyDefaults() {
	if c.Session.Restart == "" {
		c.Session.Restart = RestartReshuffle
	}
	if c.Source.Timeout == "" {
		c.Source.Timeout = "10s"
	}
	if len(c.Source.Banks) == 0 {
		c.Source.Banks = defaultBanks()
	}
	for i := range c.Source.Banks {
		if c.Source.Banks[i].Shape == "" {
			c.Source.Banks[i].Shape = "auto"
		}
	}
	if c.Source.DefaultBank == "" {
		c.Source.DefaultBank = c.Source.Banks[0].ID
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("QUIZ_API_KEY"); key != "" {
		for i := range c.Source.Banks {
			if c.Source.Banks[i].Shape == "keyed" && c.Source.Banks[i].APIKey == "" {
				c.Source.Banks[i].APIKey = key
			}
		}
	}
	c.Log.Level = envOrDefault("LOG_LEVEL", c.Log.Level)
	c.Redis.Addr = envOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Postgres.URL = envOrDefault("POSTGRES_URL", c.Postgres.URL)
	c.Session.Restart = envOrDefault("QUIZ_RESTART", c.Session.Restart)
	c.UI.ShowUserName = boolOrDefault("QUIZ_SHOW_USER_NAME", c.UI.ShowUserName)
	c.UI.ProgressiveReveal = boolOrDefault("QUIZ_PROGRESSIVE_REVEAL", c.UI.ProgressiveReveal)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.NoColor = true
	}
}

func defaultBanks() []BankConfig {
	return []BankConfig{
		{
			ID:    "opentdb",
			URL:   "https://opentdb.com/api.php",
			Shape: "flat",
			Params: map[string]string{
				"amount":     "10",
				"category":   "9",
				"difficulty": "medium",
				"type":       "multiple",
			},
		},
		{
			ID:    "linux",
			URL:   "https://quizapi.io/api/v1/questions",
			Shape: "keyed",
			Params: map[string]string{
				"category": "linux",
				"limit":    "15",
			},
		},
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func boolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return fallback
}
