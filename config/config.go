package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/reelcritic/credentials"
)

// EnvPrefix prefixes every environment override, e.g. REELCRITIC_API_URL
const EnvPrefix = "REELCRITIC"

// AppDir is the per-user directory name for config and credentials
const AppDir = ".reelcritic"

// Load loads the configuration. A .env file in the working directory is read
// first; a missing config file is not an error since defaults and the
// environment are enough to run.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, AppDir))
		}

		// Check /etc
		v.AddConfigPath("/etc/reelcritic/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()

	if cfg.Credentials.Path == "" {
		cfg.Credentials.Path = DefaultCredentialsPath(cfg.Credentials.Backend)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultCredentialsPath returns ~/.reelcritic/credentials.json, or
// credentials.db for the sqlite backend
func DefaultCredentialsPath(backend string) string {
	name := "credentials.json"
	if backend == credentials.BackendSQLite {
		name = "credentials.db"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(AppDir, name)
	}
	return filepath.Join(home, AppDir, name)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.user_agent", "reelcritic")

	// Credentials defaults
	v.SetDefault("credentials.backend", credentials.BackendFile)
	v.SetDefault("credentials.path", "")

	// Display defaults
	v.SetDefault("display.show_details", true)
	v.SetDefault("display.show_reviews", false)
	v.SetDefault("display.color", true)

	// Safety defaults
	v.SetDefault("safety.confirm_delete", true)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	// Update defaults
	v.SetDefault("update.repository", "s0up4200/reelcritic")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}

	u, err := url.Parse(cfg.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.url: %s (must be an http or https URL)", cfg.API.URL)
	}

	if cfg.API.Timeout < 0 {
		return fmt.Errorf("invalid api.timeout: %s", cfg.API.Timeout)
	}

	// Validate credentials backend
	validBackends := map[string]bool{
		credentials.BackendFile:   true,
		credentials.BackendSQLite: true,
		credentials.BackendMemory: true,
	}
	if !validBackends[cfg.Credentials.Backend] {
		return fmt.Errorf("invalid credentials.backend: %s (must be 'file', 'sqlite' or 'memory')", cfg.Credentials.Backend)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter %q has an empty expression", name)
		}
	}

	return nil
}
