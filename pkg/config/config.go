package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Log levels
const (
	LogLevelSilent  = "silent"
	LogLevelVerbose = "verbose"
	LogLevelDebug   = "debug"
)

// Report formats
const (
	FormatLegacy = "legacy"
	FormatCSV    = "csv"
	FormatTable  = "table"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds the application configuration
type Config struct {
	// Cluster connection
	Host     string `yaml:"host"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Insecure bool   `yaml:"insecure"` // skip TLS verification, CDM nodes use self-signed certs

	// Single timeout applied to every API request
	Timeout time.Duration `yaml:"timeout"`

	// Number of event series fetched in parallel while rendering (1 = sequential)
	Concurrency int `yaml:"concurrency"`

	// Output
	Output string `yaml:"output,omitempty"` // empty = stdout
	Format string `yaml:"format"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	cfg := defaultConfig()
	cfg.applyEnv()
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Insecure:    true,
		Timeout:     60 * time.Second,
		Concurrency: 1,
		Format:      FormatLegacy,
		LogLevel:    LogLevelSilent,
		LogFormat:   LogFormatText,
	}
}

// Load creates a configuration from defaults, an optional YAML file and the environment.
// When path is empty the default locations are tried; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		candidates := []string{
			"/etc/nas-job-report/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/nas-job-report/config.yaml"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if explicit {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides settings from environment variables
func (c *Config) applyEnv() {
	c.Host = getEnvAsString("CDM_HOST", c.Host)
	c.Username = getEnvAsString("CDM_USERNAME", c.Username)
	c.Password = getEnvAsString("CDM_PASSWORD", c.Password)
	c.Token = getEnvAsString("CDM_TOKEN", c.Token)
	c.Insecure = getEnvAsBool("CDM_INSECURE", c.Insecure)
	if seconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 0); seconds > 0 {
		c.Timeout = time.Duration(seconds) * time.Second
	}
	c.Concurrency = getEnvAsInt("FETCH_CONCURRENCY", c.Concurrency)
	c.Format = getEnvAsString("REPORT_FORMAT", c.Format)
	c.LogLevel = getEnvAsString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvAsString("LOG_FORMAT", c.LogFormat)
}

// SetCredentials parses a "user:password" pair
func (c *Config) SetCredentials(creds string) error {
	user, password, ok := strings.Cut(creds, ":")
	if !ok || user == "" {
		return fmt.Errorf("credentials must be given as user:password")
	}
	c.Username = user
	c.Password = password
	return nil
}

// Validate checks that the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("cluster host is required")
	}
	if c.Token == "" && (c.Username == "" || c.Password == "") {
		return fmt.Errorf("either an API token or user and password are required")
	}
	if !slices.Contains(Formats(), c.Format) {
		return fmt.Errorf("invalid format: %s. Must be one of: %s", c.Format, strings.Join(Formats(), ", "))
	}
	if !slices.Contains(LogLevels(), c.LogLevel) {
		return fmt.Errorf("invalid log level: %s. Must be one of: %s", c.LogLevel, strings.Join(LogLevels(), ", "))
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log format: %s. Must be one of: text, json", c.LogFormat)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// IsDebug returns true if debug tracing is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == LogLevelDebug
}

// IsSilent returns true if no progress messages should be logged
func (c *Config) IsSilent() bool {
	return c.LogLevel == LogLevelSilent
}

// Formats returns the supported report formats
func Formats() []string {
	return []string{FormatLegacy, FormatCSV, FormatTable}
}

// LogLevels returns the supported log levels
func LogLevels() []string {
	return []string{LogLevelSilent, LogLevelVerbose, LogLevelDebug}
}

// getEnvAsString reads an environment variable or returns the default value if not set
func getEnvAsString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable and returns it as an integer,
// or returns the default value if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable and returns it as a boolean,
// or returns the default value if not set or invalid
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
