package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("RESULTS_DIR")
	os.Unsetenv("WORKER_CONCURRENCY")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ResultsDir != "results" {
		t.Fatalf("expected default results dir, got %s", cfg.ResultsDir)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Fatalf("expected default worker concurrency 4, got %d", cfg.WorkerConcurrency)
	}
	if !cfg.WorkerEnabled {
		t.Fatalf("expected worker enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("WORKER_ENABLED", "false")
	t.Setenv("SPEECH_LANGUAGE", "ru-RU")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %f", cfg.RateLimitRPS)
	}
	if cfg.WorkerEnabled {
		t.Fatalf("expected worker disabled")
	}
	if cfg.SpeechLanguage != "ru-RU" {
		t.Fatalf("expected speech language override, got %s", cfg.SpeechLanguage)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("OPENROUTER_TIMEOUT_MS", "not-a-number")
	t.Setenv("RATE_LIMIT_RPS", "abc")

	cfg := Load()
	if cfg.OpenRouterTimeoutMS != 20000 {
		t.Fatalf("expected timeout fallback, got %d", cfg.OpenRouterTimeoutMS)
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected rps fallback, got %f", cfg.RateLimitRPS)
	}
}

func TestLoadDotEnvRespectsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "SPEECH_API_KEY=from-file\nPORT=7777\n# comment\nexport REDIS_ADDR=\"localhost:6379\"\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("PORT", "1234")
	os.Unsetenv("SPEECH_API_KEY")
	os.Unsetenv("REDIS_ADDR")
	defer os.Unsetenv("SPEECH_API_KEY")
	defer os.Unsetenv("REDIS_ADDR")

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}

	if got := os.Getenv("SPEECH_API_KEY"); got != "from-file" {
		t.Fatalf("expected key from file, got %q", got)
	}
	if got := os.Getenv("PORT"); got != "1234" {
		t.Fatalf("expected process env to win, got %q", got)
	}
	if got := os.Getenv("REDIS_ADDR"); got != "localhost:6379" {
		t.Fatalf("expected quoted export value, got %q", got)
	}
}
