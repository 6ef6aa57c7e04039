package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.KoyebPollInterval != 15*time.Second {
		t.Fatalf("expected 15s poll interval, got %s", cfg.KoyebPollInterval)
	}
	if cfg.KoyebMaxWait != 10*time.Minute {
		t.Fatalf("expected 10m max wait, got %s", cfg.KoyebMaxWait)
	}
	if cfg.KoyebBaseURL != "https://app.koyeb.com" {
		t.Fatalf("unexpected koyeb base url %q", cfg.KoyebBaseURL)
	}
	if len(cfg.CORSAllowOrigin) != 1 || cfg.CORSAllowOrigin[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowOrigin)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "OBJECT_STORE=azblob\nKOYEB_POLL_INTERVAL=2s\nPORT=9999\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("KOYEB_POLL_INTERVAL", "")
	os.Unsetenv("OBJECT_STORE")
	os.Unsetenv("KOYEB_POLL_INTERVAL")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected env PORT to win, got %q", cfg.Port)
	}
	if cfg.ObjectStoreType != "azure" {
		t.Fatalf("expected azure store, got %q", cfg.ObjectStoreType)
	}
	if cfg.KoyebPollInterval != 2*time.Second {
		t.Fatalf("expected 2s poll interval, got %s", cfg.KoyebPollInterval)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"prod":        "production",
		"Production":  "production",
		"staging":     "staging",
		"development": "dev",
		"":            "dev",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
