// ABOUTME: Configuration loading and parsing for querydeck
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete querydeck configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Queue        QueueConfig        `yaml:"queue"`
	Retry        RetryConfig        `yaml:"retry"`
	Genie        GenieConfig        `yaml:"genie"`
	Insight      InsightConfig      `yaml:"insight"`
	Conversation ConversationConfig `yaml:"conversation"`
	Status       StatusConfig       `yaml:"status"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// QueueConfig sizes the in-process task queue
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
	Workers  int `yaml:"workers"`
}

// RetryConfig holds the backoff policy applied to external service calls
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Multiplier   float64       `yaml:"multiplier"`
	InitialDelay time.Duration `yaml:"-"`
	MaxDelay     time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	InitialDelayRaw string `yaml:"initial_delay"`
	MaxDelayRaw     string `yaml:"max_delay"`
}

// GenieConfig holds the natural-language query service configuration.
// With Mock enabled (or no endpoint configured) querydeck serves
// deterministic sample data instead of calling out.
type GenieConfig struct {
	Mock     bool          `yaml:"mock"`
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	SpaceID  string        `yaml:"space_id"`
	Timeout  time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// InsightConfig holds the summary/chart recommendation service configuration
type InsightConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// ConversationConfig holds conversation behavior configuration
type ConversationConfig struct {
	// ContextWindow is how many prior messages enrich each question
	ContextWindow int `yaml:"context_window"`
}

// StatusConfig holds task status retention configuration
type StatusConfig struct {
	Retention time.Duration `yaml:"-"`

	RetentionRaw string `yaml:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:       ServerConfig{HTTPAddr: ":8080"},
		Queue:        QueueConfig{Capacity: 50, Workers: 2},
		Retry:        RetryConfig{MaxAttempts: 3, Multiplier: 2.0, InitialDelay: time.Second, MaxDelay: time.Minute},
		Genie:        GenieConfig{Mock: true, Timeout: 30 * time.Second},
		Insight:      InsightConfig{Timeout: 30 * time.Second},
		Conversation: ConversationConfig{ContextWindow: 10},
		Status:       StatusConfig{Retention: 30 * time.Minute},
		Logging:      LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Omitted fields fall back to the defaults from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}
	if !c.Genie.Mock && c.Genie.Endpoint != "" && c.Genie.Token == "" {
		return fmt.Errorf("genie.token is required when genie.endpoint is set")
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
		{"retry.initial_delay", cfg.Retry.InitialDelayRaw, &cfg.Retry.InitialDelay},
		{"retry.max_delay", cfg.Retry.MaxDelayRaw, &cfg.Retry.MaxDelay},
		{"genie.timeout", cfg.Genie.TimeoutRaw, &cfg.Genie.Timeout},
		{"insight.timeout", cfg.Insight.TimeoutRaw, &cfg.Insight.Timeout},
		{"status.retention", cfg.Status.RetentionRaw, &cfg.Status.Retention},
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
