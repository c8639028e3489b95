package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Display     DisplayConfig     `mapstructure:"display"`
	Filters     FilterConfig      `mapstructure:"filters"`
	Safety      SafetyConfig      `mapstructure:"safety"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Update      UpdateConfig      `mapstructure:"update"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// APIConfig holds the review service connection details
type APIConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CredentialsConfig selects where the session tokens are persisted
type CredentialsConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// DisplayConfig contains output settings
type DisplayConfig struct {
	ShowDetails bool `mapstructure:"show_details"`
	ShowReviews bool `mapstructure:"show_reviews"`
	Color       bool `mapstructure:"color"`
}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	ConfirmDelete bool `mapstructure:"confirm_delete"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// UpdateConfig points the self-updater at a release repository
type UpdateConfig struct {
	Repository string `mapstructure:"repository"`
}
