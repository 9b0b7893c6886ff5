package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "petshop" {
		t.Errorf("expected Name=petshop, got %s", cfg.Name)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Errorf("unexpected default base url %s", cfg.API.BaseURL)
	}
	if !cfg.UX.StrictOrdering {
		t.Errorf("expected strict ordering on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("PETSHOP_API_URL", "")
	t.Setenv("PETSHOP_DB", "")
	t.Setenv("PETSHOP_DEBUG", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://shop.example.com/api"
	cfg.UX.SearchDebounce = "300ms"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "https://shop.example.com/api" {
		t.Errorf("expected custom base url, got %s", loaded.API.BaseURL)
	}
	if got := loaded.UX.GetSearchDebounce(); got != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", got)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	t.Setenv("PETSHOP_API_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults: %v", err)
	}
	if cfg.Name != "petshop" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing base url")
	}

	cfg = DefaultConfig()
	cfg.API.BaseURL = "ftp://shop"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for ftp scheme")
	}

	cfg = DefaultConfig()
	cfg.UX.ToastDuration = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad duration")
	}
}

func TestUXConfig_DebounceClamp(t *testing.T) {
	cases := map[string]time.Duration{
		"100ms": MinSearchDebounce,
		"400ms": 400 * time.Millisecond,
		"2s":    MaxSearchDebounce,
		"bogus": MaxSearchDebounce,
	}
	for in, want := range cases {
		u := UXConfig{SearchDebounce: in}
		if got := u.GetSearchDebounce(); got != want {
			t.Errorf("debounce(%s) = %v, want %v", in, got, want)
		}
	}
}

func TestUXConfig_Fallbacks(t *testing.T) {
	u := UXConfig{}
	if u.GetToastDuration() != 3*time.Second {
		t.Errorf("expected 3s toast fallback")
	}
	if u.GetRedirectDelay() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s redirect fallback")
	}
}
