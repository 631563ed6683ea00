// Package config reads the bot configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/DuckyBlender/duck-summarizer/internal/groq"
	"github.com/DuckyBlender/duck-summarizer/internal/store"
	"github.com/DuckyBlender/duck-summarizer/internal/summarize"
)

// Config holds everything the process needs. Secrets stay as plain fields;
// nothing here is ever persisted.
type Config struct {
	TelegramAPIBase string
	PollTimeout     int
	SleepSeconds    int
	DropPending     bool
	PendingWindow   int64
	PendingMax      int
	SendRate        float64

	GroqAPIKey string
	GroqURL    string
	GroqModel  string

	HistoryCapacity int
	MetricsAddr     string
}

// Load reads the configuration. A .env file in the working directory is
// merged in first when present (containers usually set the environment
// directly).
func Load() (Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in environment")
	}
	groqKey := os.Getenv("GROQ_API_KEY")
	if groqKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is required in environment")
	}

	cfg := Config{
		TelegramAPIBase: fmt.Sprintf("https://api.telegram.org/bot%s", token),
		PollTimeout:     envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds:    envIntOrDefault("TG_SLEEP_SECONDS", 1),
		DropPending:     envBoolOrDefault("TG_DROP_PENDING", true),
		PendingWindow:   int64(envIntOrDefault("TG_PENDING_WINDOW_SECONDS", 600)),
		PendingMax:      envIntOrDefault("TG_PENDING_MAX_MESSAGES", 50),
		SendRate:        envFloatOrDefault("SEND_RATE_PER_SECOND", 1),

		GroqAPIKey: groqKey,
		GroqURL:    envOrDefault("GROQ_API_URL", groq.DefaultURL),
		GroqModel:  envOrDefault("GROQ_MODEL", summarize.DefaultModel),

		HistoryCapacity: envIntOrDefault("HISTORY_CAPACITY", store.DefaultCapacity),
		MetricsAddr:     envOrDefault("METRICS_ADDR", ":9090"),
	}

	if cfg.HistoryCapacity < 1 {
		return Config{}, fmt.Errorf("HISTORY_CAPACITY must be at least 1")
	}
	if cfg.PollTimeout < 0 {
		return Config{}, fmt.Errorf("TG_TIMEOUT must not be negative")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
