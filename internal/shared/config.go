package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	TokenBackendSQLite  = "sqlite"
	TokenBackendKeyring = "keyring"

	IdentityPlaceholder = "placeholder"
	IdentityClaims      = "claims"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Upload   UploadConfig   `toml:"upload"`
}

// APIConfig contains the analysis service endpoint and request timeouts.
//
// Timeout applies to ordinary calls, UploadTimeout to video uploads which must
// tolerate the transfer of large payloads.
type APIConfig struct {
	BaseURL       string        `toml:"base_url" env:"FORMCHECK_BASE_URL" validate:"required,url"`
	Timeout       time.Duration `toml:"timeout" env:"FORMCHECK_TIMEOUT" validate:"gt=0"`
	UploadTimeout time.Duration `toml:"upload_timeout" env:"FORMCHECK_UPLOAD_TIMEOUT" validate:"gt=0"`
}

// SessionConfig controls where credentials live and how identity is resolved.
type SessionConfig struct {
	Environment  string `toml:"environment" env:"FORMCHECK_ENV" validate:"oneof=development production"`
	TokenBackend string `toml:"token_backend" env:"FORMCHECK_TOKEN_BACKEND" validate:"oneof=sqlite keyring"`
	Identity     string `toml:"identity" env:"FORMCHECK_IDENTITY" validate:"oneof=placeholder claims"`
}

// DatabaseConfig contains local database settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"FORMCHECK_DB_PATH" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"FORMCHECK_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// UploadConfig contains batch upload settings.
type UploadConfig struct {
	Workers   int     `toml:"workers" validate:"gte=1,lte=4"`
	RateLimit float64 `toml:"rate_limit" validate:"gt=0"`
	MaxSizeMB int64   `toml:"max_size_mb" validate:"gte=0"`
}

// Production reports whether cookies should be marked secure.
func (c *Config) Production() bool {
	return c.Session.Environment == EnvProduction
}

// Validate checks struct tags on the whole configuration.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays FORMCHECK_* environment variables onto config.
//
// A .env file in the working directory is loaded first when present.
func ApplyEnv(config *Config) error {
	_ = godotenv.Load()

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveConfig loads path when it exists (defaults otherwise), applies the
// environment overlay and validates the result.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	config.Database.Path = ExpandPath(config.Database.Path)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
