package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all worker configuration, sourced from the environment
type Config struct {
	Reddit   RedditConfig
	LLM      LLMConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	LogLevel string
}

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	// Subreddits seeded into storage on first boot, comma separated
	Subreddits []string
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type DatabaseConfig struct {
	Path string
}

type WorkerConfig struct {
	FetchIntervalHours     int
	ProcessIntervalMinutes int
	BatchSize              int
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Reddit: RedditConfig{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			UserAgent:    envOr("REDDIT_USER_AGENT", "redditminer/1.0"),
			Subreddits:   splitList(os.Getenv("SUBREDDITS")),
		},
		LLM: LLMConfig{
			BaseURL: envOr("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   envOr("LLM_MODEL", "gpt-4o-mini"),
		},
		Database: DatabaseConfig{
			Path: envOr("DATABASE_PATH", "redditminer.db"),
		},
		Worker: WorkerConfig{
			FetchIntervalHours:     envInt("FETCH_INTERVAL_HOURS", 24),
			ProcessIntervalMinutes: envInt("PROCESS_INTERVAL_MINUTES", 30),
			BatchSize:              envInt("BATCH_SIZE", 10),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Verify checks that credentials required for normal operation are set
func (c *Config) Verify() error {
	var missing []string
	if c.Reddit.ClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}
	if c.Reddit.ClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
