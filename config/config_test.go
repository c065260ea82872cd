package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, `
platform: claude
api_key: sk-test
model: claude-sonnet-4
temperature: 0.7
chunk_timeout: 10s
`)

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	s := cfg.Get()
	if s.Platform != "claude" || s.APIKey != "sk-test" || s.Model != "claude-sonnet-4" {
		t.Fatalf("settings=%+v", s)
	}
	if s.Temperature == nil || *s.Temperature != 0.7 {
		t.Fatalf("Temperature=%v", s.Temperature)
	}
	if s.ChunkTimeout != 10*time.Second {
		t.Fatalf("ChunkTimeout=%v", s.ChunkTimeout)
	}
	if s.LogLevel != "info" {
		t.Fatalf("LogLevel=%q, default missing", s.LogLevel)
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "api_key: sk-test\nmodel: gpt-4o\n")

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	if got := cfg.Get().Platform; got != "openai" {
		t.Fatalf("Platform=%q", got)
	}
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "api_key: from-file\nmodel: gpt-4o\n")
	t.Setenv("AICONN_API_KEY", "from-env")

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	if got := cfg.Get().APIKey; got != "from-env" {
		t.Fatalf("APIKey=%q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "api_key: sk-test\nmodel: gpt-4o\ntemperature: 0.5\n")

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	a := cfg.Get()
	*a.Temperature = 99
	if got := cfg.Get(); *got.Temperature != 0.5 {
		t.Fatalf("Temperature=%v, Get must return a copy", *got.Temperature)
	}
}

func TestOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "api_key: sk-test\nmodel: gpt-4o\n")

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}

	changed := make(chan Settings, 1)
	cfg.OnChange(func(_, new Settings) {
		select {
		case changed <- new:
		default:
		}
	})

	writeFile(t, path, "api_key: sk-test\nmodel: gpt-4.1\n")

	select {
	case s := <-changed:
		if s.Model != "gpt-4.1" {
			t.Fatalf("Model=%q", s.Model)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("change callback never fired")
	}
}
