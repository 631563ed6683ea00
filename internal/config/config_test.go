package config

import (
	"strings"
	"testing"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("GROQ_API_KEY", "test-key")
}

func TestLoad_RequiresTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GROQ_API_KEY", "test-key")
	_, err := Load()
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_RequiresGroqKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("GROQ_API_KEY", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected missing key error")
	}
	if !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setupEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.TelegramAPIBase != "https://api.telegram.org/bottest-token" {
		t.Fatalf("unexpected api base: %s", cfg.TelegramAPIBase)
	}
	if cfg.HistoryCapacity != 1000 {
		t.Fatalf("unexpected capacity: %d", cfg.HistoryCapacity)
	}
	if cfg.GroqModel != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model: %s", cfg.GroqModel)
	}
	if !strings.Contains(cfg.GroqURL, "api.groq.com") {
		t.Fatalf("unexpected groq url: %s", cfg.GroqURL)
	}
	if !cfg.DropPending {
		t.Fatal("expected drop pending by default")
	}
	if cfg.PollTimeout != 30 {
		t.Fatalf("unexpected poll timeout: %d", cfg.PollTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setupEnv(t)
	t.Setenv("HISTORY_CAPACITY", "250")
	t.Setenv("GROQ_MODEL", "llama-3.1-8b-instant")
	t.Setenv("TG_DROP_PENDING", "false")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("SEND_RATE_PER_SECOND", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.HistoryCapacity != 250 {
		t.Fatalf("unexpected capacity: %d", cfg.HistoryCapacity)
	}
	if cfg.GroqModel != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected model: %s", cfg.GroqModel)
	}
	if cfg.DropPending {
		t.Fatal("expected drop pending disabled")
	}
	if cfg.SendRate != 0.5 {
		t.Fatalf("unexpected send rate: %f", cfg.SendRate)
	}
}

func TestLoad_ValidatesCapacity(t *testing.T) {
	setupEnv(t)
	t.Setenv("HISTORY_CAPACITY", "0")
	_, err := Load()
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if !strings.Contains(err.Error(), "HISTORY_CAPACITY") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_IgnoresMalformedInts(t *testing.T) {
	setupEnv(t)
	t.Setenv("TG_TIMEOUT", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.PollTimeout != 30 {
		t.Fatalf("expected default timeout, got %d", cfg.PollTimeout)
	}
}
