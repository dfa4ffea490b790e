package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:3000/api" {
			t.Errorf("expected base URL http://localhost:3000/api, got %s", config.API.BaseURL)
		}

		if config.API.Timeout != 10*time.Second {
			t.Errorf("expected timeout 10s, got %v", config.API.Timeout)
		}

		if config.API.UploadTimeout != 5*time.Minute {
			t.Errorf("expected upload timeout 5m, got %v", config.API.UploadTimeout)
		}

		if config.Session.TokenBackend != TokenBackendSQLite {
			t.Errorf("expected token backend sqlite, got %s", config.Session.TokenBackend)
		}

		if config.Production() {
			t.Error("default config should not be production")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		err = CreateConfigFile(configPath)
		if !errors.Is(err, os.ErrExist) {
			t.Errorf("creating config file again should fail with ErrExist, got %v", err)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "https://squat.example.com/api"
timeout = "3s"

[session]
environment = "production"
identity = "claims"

[database]
path = "/custom/path.db"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://squat.example.com/api" {
			t.Errorf("expected custom base URL, got %s", config.API.BaseURL)
		}

		if config.API.Timeout != 3*time.Second {
			t.Errorf("expected timeout 3s, got %v", config.API.Timeout)
		}

		if config.API.UploadTimeout != 5*time.Minute {
			t.Errorf("upload timeout should keep its default, got %v", config.API.UploadTimeout)
		}

		if !config.Production() {
			t.Error("expected production environment")
		}

		if config.Session.Identity != IdentityClaims {
			t.Errorf("expected claims identity, got %s", config.Session.Identity)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(configPath, []byte("[api\nbase_url ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(c *Config)
		}{
			{name: "missing base URL", mutate: func(c *Config) { c.API.BaseURL = "" }},
			{name: "malformed base URL", mutate: func(c *Config) { c.API.BaseURL = "not a url" }},
			{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }},
			{name: "unknown environment", mutate: func(c *Config) { c.Session.Environment = "staging" }},
			{name: "unknown token backend", mutate: func(c *Config) { c.Session.TokenBackend = "file" }},
			{name: "too many workers", mutate: func(c *Config) { c.Upload.Workers = 16 }},
			{name: "negative max size", mutate: func(c *Config) { c.Upload.MaxSizeMB = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)

				err := config.Validate()
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("FORMCHECK_BASE_URL", "https://env.example.com/api")
		t.Setenv("FORMCHECK_ENV", "production")
		t.Setenv("FORMCHECK_TIMEOUT", "15s")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.API.BaseURL != "https://env.example.com/api" {
			t.Errorf("expected env base URL, got %s", config.API.BaseURL)
		}
		if config.API.Timeout != 15*time.Second {
			t.Errorf("expected env timeout 15s, got %v", config.API.Timeout)
		}
		if !config.Production() {
			t.Error("expected production from env")
		}
	})

	t.Run("ResolveConfig without file", func(t *testing.T) {
		t.Setenv("FORMCHECK_DB_PATH", ":memory:")

		config, err := ResolveConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("ResolveConfig() error = %v", err)
		}
		if config.Database.Path != ":memory:" {
			t.Errorf("expected env database path, got %s", config.Database.Path)
		}
	})

	t.Run("ResolveConfig rejects invalid env", func(t *testing.T) {
		t.Setenv("FORMCHECK_IDENTITY", "oauth")

		_, err := ResolveConfig("")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
