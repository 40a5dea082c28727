// ABOUTME: Configuration loading and parsing for kitchat
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by kitchat.
const (
	EnvAPIURL = "KITCHAT_API_URL"
	EnvConfig = "KITCHAT_CONFIG"
)

// DefaultAPIURL is the backend used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000"

// Config represents the complete kitchat configuration
type Config struct {
	API       APIConfig       `yaml:"api" toml:"api"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Health    HealthConfig    `yaml:"health" toml:"health"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// APIConfig holds the backend location
type APIConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// TransportConfig holds socket and fallback timing
type TransportConfig struct {
	ReconnectDelay    time.Duration `yaml:"-" toml:"-"`
	MaxReconnectDelay time.Duration `yaml:"-" toml:"-"`
	SendTimeout       time.Duration `yaml:"-" toml:"-"`
	RequestTimeout    time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ReconnectDelayRaw    string `yaml:"reconnect_delay" toml:"reconnect_delay"`
	MaxReconnectDelayRaw string `yaml:"max_reconnect_delay" toml:"max_reconnect_delay"`
	SendTimeoutRaw       string `yaml:"send_timeout" toml:"send_timeout"`
	RequestTimeoutRaw    string `yaml:"request_timeout" toml:"request_timeout"`
}

// HealthConfig holds status probe settings
type HealthConfig struct {
	ProbeTimeout    time.Duration `yaml:"-" toml:"-"`
	ProbeTimeoutRaw string        `yaml:"probe_timeout" toml:"probe_timeout"`
}

// StorageConfig holds the settings database location
type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
	// Watch reloads credentials when another process changes the database.
	Watch bool `yaml:"watch" toml:"watch"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// File receives log output; empty means stderr.
	File string `yaml:"file" toml:"file"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIURL,
		},
		Transport: TransportConfig{
			ReconnectDelay: 3 * time.Second,
			SendTimeout:    60 * time.Second,
			RequestTimeout: 60 * time.Second,
		},
		Health: HealthConfig{
			ProbeTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Path:  filepath.Join(DataDir(), "kitchat.db"),
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DataDir returns the directory for kitchat's persistent data, following
// XDG_DATA_HOME.
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "kitchat")
}

// DefaultPath returns the config file location: KITCHAT_CONFIG if set,
// otherwise $XDG_CONFIG_HOME/kitchat/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "kitchat", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed
// Config layered over Default(). A missing file is not an error. The format
// is TOML for ".toml" files and YAML otherwise. Environment variables in the
// format ${VAR_NAME} are expanded, and KITCHAT_API_URL overrides api.base_url.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path, content string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(content, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(content), cfg)
}

// envVarPattern matches ${VAR_NAME}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
	)
}

// Validate validates the transport timings.
func (c *TransportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ReconnectDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SendTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxReconnectDelay, validation.When(c.MaxReconnectDelay != 0, validation.Min(c.ReconnectDelay))),
	)
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("", "debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("", "text", "json")),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"transport.reconnect_delay", cfg.Transport.ReconnectDelayRaw, &cfg.Transport.ReconnectDelay},
		{"transport.max_reconnect_delay", cfg.Transport.MaxReconnectDelayRaw, &cfg.Transport.MaxReconnectDelay},
		{"transport.send_timeout", cfg.Transport.SendTimeoutRaw, &cfg.Transport.SendTimeout},
		{"transport.request_timeout", cfg.Transport.RequestTimeoutRaw, &cfg.Transport.RequestTimeout},
		{"health.probe_timeout", cfg.Health.ProbeTimeoutRaw, &cfg.Health.ProbeTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
