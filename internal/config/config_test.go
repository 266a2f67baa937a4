package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BedrockModelID != "" {
		t.Fatalf("expected default bedrock model empty, got %s", cfg.BedrockModelID)
	}
	if cfg.BotRuleConfidence != 0.8 {
		t.Fatalf("expected default rule confidence, got %f", cfg.BotRuleConfidence)
	}
	if cfg.BotStateTimeout != 300*time.Second {
		t.Fatalf("expected default state timeout, got %s", cfg.BotStateTimeout)
	}
	if cfg.BotLowConfidenceStreak != 3 {
		t.Fatalf("expected default low confidence streak, got %d", cfg.BotLowConfidenceStreak)
	}
	if cfg.BotHistorySize != 10 {
		t.Fatalf("expected default history size, got %d", cfg.BotHistorySize)
	}
	if cfg.ProviderID != "default" {
		t.Fatalf("expected default provider id, got %s", cfg.ProviderID)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("BOT_RULE_CONFIDENCE", "0.7")
	t.Setenv("BOT_ML_MARGIN", "0.2")
	t.Setenv("BOT_STATE_TIMEOUT", "2m")
	t.Setenv("BOT_FOLLOW_UP_THRESHOLD", "0.9")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("PROVIDER_ID", "studio-bela")
	t.Setenv("PROVIDER_NAME", "Studio Bela")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.BotRuleConfidence != 0.7 {
		t.Fatalf("expected rule confidence override, got %f", cfg.BotRuleConfidence)
	}
	if cfg.BotMLMargin != 0.2 {
		t.Fatalf("expected ml margin override, got %f", cfg.BotMLMargin)
	}
	if cfg.BotStateTimeout != 2*time.Minute {
		t.Fatalf("expected state timeout override, got %s", cfg.BotStateTimeout)
	}
	if cfg.BotFollowUpThreshold != 0.9 {
		t.Fatalf("expected follow-up threshold override, got %f", cfg.BotFollowUpThreshold)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue enabled")
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected worker count override, got %d", cfg.WorkerCount)
	}
	if cfg.ProviderID != "studio-bela" {
		t.Fatalf("expected provider id override, got %s", cfg.ProviderID)
	}
	if cfg.ProviderName != "Studio Bela" {
		t.Fatalf("expected provider name override, got %s", cfg.ProviderName)
	}
}
