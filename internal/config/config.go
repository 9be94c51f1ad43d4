// Package config loads Aviary configuration from the environment with an
// optional YAML overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers for the local completion backend. When Provider is empty the
// daemon talks to the async task API instead.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// World API (directory, message store, task queue, delivery relay)
	APIBase string
	FeedURL string // optional websocket message feed, empty disables

	// Polling cadence
	PollInterval      time.Duration
	TaskPollInterval  time.Duration
	AvatarTickTimeout time.Duration
	ChronicleInterval time.Duration

	// Completion backend
	TaskModel       string // model name submitted with each task
	LLMProvider     string // empty: use the task API
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// SurrealDB world store (items, rooms, character context)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors Config for the YAML overlay. Only set fields override.
type fileConfig struct {
	APIBase           string `yaml:"api_base"`
	FeedURL           string `yaml:"feed_url"`
	PollInterval      string `yaml:"poll_interval"`
	TaskPollInterval  string `yaml:"task_poll_interval"`
	ChronicleInterval string `yaml:"chronicle_interval"`
	TaskModel         string `yaml:"task_model"`
	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	OllamaHost        string `yaml:"ollama_host"`
	SurrealDBURL      string `yaml:"surrealdb_url"`
	SurrealDBNS       string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase string `yaml:"surrealdb_database"`
	LogFile           string `yaml:"log_file"`
	LogLevel          string `yaml:"log_level"`
}

// Load reads configuration from defaults, the optional config file named by
// AVIARY_CONFIG, then environment variables (highest precedence).
func Load() (Config, error) {
	cfg := Config{
		APIBase:            "http://localhost:3000",
		PollInterval:       2 * time.Second,
		TaskPollInterval:   2 * time.Second,
		AvatarTickTimeout:  5 * time.Minute,
		ChronicleInterval:  6 * time.Hour,
		TaskModel:          "ollama/llama3.2",
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "aviary",
		SurrealDBDatabase:  "world",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		LogFile:            "/tmp/aviary.log",
		LogLevel:           slog.LevelInfo,
	}

	if path := os.Getenv("AVIARY_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.APIBase = getEnv("AVIARY_API_BASE", cfg.APIBase)
	cfg.FeedURL = getEnv("AVIARY_FEED_URL", cfg.FeedURL)
	cfg.TaskModel = getEnv("AVIARY_TASK_MODEL", cfg.TaskModel)
	cfg.LLMProvider = getEnv("AVIARY_LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("AVIARY_LLM_MODEL", cfg.LLMModel)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.LogFile = getEnv("AVIARY_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("AVIARY_LOG_LEVEL", ""), cfg.LogLevel)

	var err error
	if cfg.PollInterval, err = durationEnv("AVIARY_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return cfg, err
	}
	if cfg.TaskPollInterval, err = durationEnv("AVIARY_TASK_POLL_INTERVAL", cfg.TaskPollInterval); err != nil {
		return cfg, err
	}
	if cfg.ChronicleInterval, err = durationEnv("AVIARY_CHRONICLE_INTERVAL", cfg.ChronicleInterval); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setString(&c.APIBase, fc.APIBase)
	setString(&c.FeedURL, fc.FeedURL)
	setString(&c.TaskModel, fc.TaskModel)
	setString(&c.LLMProvider, fc.LLMProvider)
	setString(&c.LLMModel, fc.LLMModel)
	setString(&c.OllamaHost, fc.OllamaHost)
	setString(&c.SurrealDBURL, fc.SurrealDBURL)
	setString(&c.SurrealDBNamespace, fc.SurrealDBNS)
	setString(&c.SurrealDBDatabase, fc.SurrealDBDatabase)
	setString(&c.LogFile, fc.LogFile)
	c.LogLevel = parseLogLevel(fc.LogLevel, c.LogLevel)

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.PollInterval, &c.PollInterval},
		{fc.TaskPollInterval, &c.TaskPollInterval},
		{fc.ChronicleInterval, &c.ChronicleInterval},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string, defaultLevel slog.Level) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}
