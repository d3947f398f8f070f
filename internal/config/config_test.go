package config

import "testing"

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("FIELDHAND_GEMINI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FIELDHAND_GEMINI_API_KEY", "k-123")
	t.Setenv("FIELDHAND_SERVER_PORT", "5000")
	t.Setenv("FIELDHAND_LOCALE", "hi-IN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "k-123" {
		t.Errorf("APIKey = %q", cfg.Gemini.APIKey)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Advice.Locale != "hi-IN" {
		t.Errorf("Locale = %q", cfg.Advice.Locale)
	}
	// Untouched values keep their defaults.
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Gemini.Model)
	}
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("FIELDHAND_GEMINI_API_KEY", "k")
	t.Setenv("FIELDHAND_SERVER_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}
