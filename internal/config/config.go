// Package config loads fieldhand configuration from defaults and FIELDHAND_*
// environment variables. The Gemini API key is the only required value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Advice  AdviceConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
	// Token protects the HTTP API. Empty disables auth (loopback-only use).
	Token string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type AdviceConfig struct {
	// Locale is the default locale code for advice; calls may override it.
	Locale string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Advice: AdviceConfig{
			Locale: "en-US",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".fieldhand"
	}
	return filepath.Join(base, "fieldhand")
}

type envSpec struct {
	env   string
	apply func(cfg *Config, v string) error
}

func setInt(dst *int) func(*Config, string) error {
	return func(_ *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func envSpecs(cfg *Config) []envSpec {
	setString := func(dst *string) func(*Config, string) error {
		return func(_ *Config, v string) error { *dst = v; return nil }
	}
	return []envSpec{
		{env: "FIELDHAND_SERVER_PORT", apply: setInt(&cfg.Server.Port)},
		{env: "FIELDHAND_SERVER_MCP_PORT", apply: setInt(&cfg.Server.MCPPort)},
		{env: "FIELDHAND_SERVER_TOKEN", apply: setString(&cfg.Server.Token)},
		{env: "FIELDHAND_GEMINI_API_KEY", apply: setString(&cfg.Gemini.APIKey)},
		{env: "FIELDHAND_GEMINI_MODEL", apply: setString(&cfg.Gemini.Model)},
		{env: "FIELDHAND_GEMINI_BASE_URL", apply: setString(&cfg.Gemini.BaseURL)},
		{env: "FIELDHAND_DATA_DIR", apply: setString(&cfg.Storage.DataDir)},
		{env: "FIELDHAND_LOCALE", apply: setString(&cfg.Advice.Locale)},
		{env: "FIELDHAND_LOG_LEVEL", apply: setString(&cfg.Log.Level)},
	}
}

// Load reads configuration from defaults and environment overrides.
func Load() (Config, error) {
	cfg := defaults()
	for _, spec := range envSpecs(&cfg) {
		v, ok := os.LookupEnv(spec.env)
		if !ok || v == "" {
			continue
		}
		if err := spec.apply(&cfg, v); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", spec.env, err)
		}
	}

	if cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. Set FIELDHAND_GEMINI_API_KEY")
	}
	return cfg, nil
}
