package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("WORKER_CONCURRENCY", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.ModelArticleFallback != "gpt-4.1-nano" {
		t.Fatalf("unexpected article fallback %q", cfg.ModelArticleFallback)
	}
	if cfg.WorkerConcurrency != 3 {
		t.Fatalf("expected worker concurrency 3, got %d", cfg.WorkerConcurrency)
	}
}

func TestLoadInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	if got := Load().RateLimitBurst; got != 40 {
		t.Fatalf("expected fallback burst 40, got %d", got)
	}
}

func TestLoadYAMLFileKeepsEnvironmentPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "port: 9090\nworker_concurrency: 7\ncors_allowed_origins:\n  - https://a.example\n  - https://b.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7000")
	unsetForTest(t, "WORKER_CONCURRENCY")
	unsetForTest(t, "CORS_ALLOWED_ORIGINS")

	if err := LoadYAMLFile(path); err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected env to win, got %q", cfg.Port)
	}
	if cfg.WorkerConcurrency != 7 {
		t.Fatalf("expected yaml worker concurrency, got %d", cfg.WorkerConcurrency)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadYAMLFileMissingIsIgnored(t *testing.T) {
	if err := LoadYAMLFile(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestParseDotEnvValue(t *testing.T) {
	cases := map[string]string{
		`"quoted\nvalue"`: "quoted\nvalue",
		`'single'`:        "single",
		`plain # comment`: "plain",
		`  spaced  `:      "spaced",
	}
	for raw, want := range cases {
		if got := parseDotEnvValue(raw); got != want {
			t.Fatalf("parseDotEnvValue(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseDotEnvSkipsCommentsAndExport(t *testing.T) {
	values, err := parseDotEnv(strings.NewReader("# comment\n\nexport OPENAI_API_KEY=sk-test\nBROKEN LINE\n BILLING_URL = '/billing' \n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %#v", values)
	}
	if values["OPENAI_API_KEY"] != "sk-test" || values["BILLING_URL"] != "/billing" {
		t.Fatalf("unexpected values: %#v", values)
	}
}

func TestLoadDotEnvKeepsEnvironmentPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SESSION_POLL_MS=500\nNOTIFICATION_CAP=10\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("NOTIFICATION_CAP", "99")
	unsetForTest(t, "SESSION_POLL_MS")

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	cfg := Load()
	if cfg.SessionPollMS != 500 {
		t.Fatalf("expected poll interval from file, got %d", cfg.SessionPollMS)
	}
	if cfg.NotificationCap != 99 {
		t.Fatalf("expected environment to win, got %d", cfg.NotificationCap)
	}
}

// unsetForTest clears key and restores it when the test finishes.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
