package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/teemow/inboxbrief/internal/apperrors"
)

const (
	// DefaultCredentialsPath is the OAuth client secret file, relative to the
	// working directory.
	DefaultCredentialsPath = "credentials.json"

	// DefaultTokenPath is where the authorized token is persisted.
	DefaultTokenPath = "token.json"

	// DefaultEntries is the default number of events and messages returned.
	DefaultEntries = 10

	// MaxEntries caps entry counts at the Gmail list page maximum.
	MaxEntries = 500

	// EnvConfigPath overrides the implicit config file location.
	EnvConfigPath = "INBOXBRIEF_CONFIG"
)

// Environment variables that override values from the config file.
const (
	EnvCredentialsPath        = "INBOXBRIEF_CREDENTIALS_PATH"
	EnvTokenPath              = "INBOXBRIEF_TOKEN_PATH"
	EnvDefaultCalendarEntries = "INBOXBRIEF_DEFAULT_CALENDAR_ENTRIES"
	EnvDefaultEmailEntries    = "INBOXBRIEF_DEFAULT_EMAIL_ENTRIES"
	EnvInteractiveAuth        = "INBOXBRIEF_INTERACTIVE_AUTH"
)

// Config holds the settings of one inboxbrief session.
type Config struct {
	// CredentialsPath is the OAuth client secret JSON downloaded from the
	// Google Cloud console.
	CredentialsPath string `toml:"path_to_credentials"`

	// TokenPath is where the access and refresh tokens are stored after the
	// first authorization.
	TokenPath string `toml:"token_path"`

	DefaultCalendarEntries int `toml:"default_calendar_entries"`
	DefaultEmailEntries    int `toml:"default_email_entries"`

	// InteractiveAuth allows the browser-based OAuth flow to start when no
	// token is stored. When false, callers get an authorization error instead.
	InteractiveAuth bool `toml:"interactive_auth"`

	RateLimits RateLimits `toml:"rate_limits"`
}

// RateLimits paces calls to each Google API.
type RateLimits struct {
	GmailRPS      float64 `toml:"gmail_rps"`
	GmailBurst    int     `toml:"gmail_burst"`
	CalendarRPS   float64 `toml:"calendar_rps"`
	CalendarBurst int     `toml:"calendar_burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CredentialsPath:        DefaultCredentialsPath,
		TokenPath:              DefaultTokenPath,
		DefaultCalendarEntries: DefaultEntries,
		DefaultEmailEntries:    DefaultEntries,
		InteractiveAuth:        true,
		RateLimits: RateLimits{
			GmailRPS:      2,
			GmailBurst:    5,
			CalendarRPS:   5,
			CalendarBurst: 10,
		},
	}
}

// DefaultPath returns the implicit config file location,
// <user config dir>/inboxbrief/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inboxbrief", "config.toml")
}

// Load builds the session configuration from defaults, the TOML file at path,
// and environment variables, in that order of precedence.
//
// An empty path falls back to $INBOXBRIEF_CONFIG and then DefaultPath. A
// missing implicit file is ignored; a missing explicit file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path = env
			explicit = true
		} else {
			path = DefaultPath()
		}
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				// no config file yet
			} else {
				return Config{}, apperrors.NewConfigurationError(fmt.Sprintf("failed to load config file %s", path), err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return toml.Unmarshal(data, c)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvCredentialsPath); v != "" {
		c.CredentialsPath = v
	}
	if v := os.Getenv(EnvTokenPath); v != "" {
		c.TokenPath = v
	}

	intVars := []struct {
		key string
		dst *int
	}{
		{EnvDefaultCalendarEntries, &c.DefaultCalendarEntries},
		{EnvDefaultEmailEntries, &c.DefaultEmailEntries},
	}
	for _, iv := range intVars {
		v := os.Getenv(iv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewConfigurationError(fmt.Sprintf("%s must be an integer", iv.key), err)
		}
		*iv.dst = n
	}

	if v := os.Getenv(EnvInteractiveAuth); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.NewConfigurationError(fmt.Sprintf("%s must be a boolean", EnvInteractiveAuth), err)
		}
		c.InteractiveAuth = b
	}

	return nil
}

// Validate checks the invariants every session relies on.
func (c Config) Validate() error {
	if c.CredentialsPath == "" {
		return apperrors.NewConfigurationError("path_to_credentials must not be empty", nil)
	}
	if c.TokenPath == "" {
		return apperrors.NewConfigurationError("token_path must not be empty", nil)
	}
	if err := ValidateEntries("default_calendar_entries", c.DefaultCalendarEntries); err != nil {
		return err
	}
	if err := ValidateEntries("default_email_entries", c.DefaultEmailEntries); err != nil {
		return err
	}
	if c.RateLimits.GmailRPS <= 0 || c.RateLimits.CalendarRPS <= 0 {
		return apperrors.NewConfigurationError("rate limits must be positive", nil)
	}
	if c.RateLimits.GmailBurst < 1 || c.RateLimits.CalendarBurst < 1 {
		return apperrors.NewConfigurationError("rate limit bursts must be at least 1", nil)
	}
	return nil
}

// ValidateEntries checks that an entry count is a positive integer no larger
// than MaxEntries.
func ValidateEntries(name string, n int) error {
	if n < 1 || n > MaxEntries {
		return apperrors.NewConfigurationError(fmt.Sprintf("%s must be a positive integer no larger than %d, got %d", name, MaxEntries, n), nil)
	}
	return nil
}

// Save writes the configuration as TOML with owner-only permissions,
// creating the parent directory when needed.
func (c Config) Save(path string) error {
	if path == "" {
		return apperrors.NewConfigurationError("config path must not be empty", nil)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
