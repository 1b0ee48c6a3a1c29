// Package config loads the indexer configuration from a YAML (or JSON) file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arkiv/inscription-indexer/internal/inscription"
)

const (
	DefaultPort          = 5432
	DefaultThreads       = 100
	DefaultQueueCapacity = 40960
	DefaultPollInterval  = 500 * time.Millisecond
)

// Config is the plugin configuration. Key names match the Geyser plugin JSON config
// so existing files load unchanged.
type Config struct {
	// Host, User and Port are used only when ConnectionStr is empty.
	Host          string `yaml:"host"`
	User          string `yaml:"user"`
	Port          uint16 `yaml:"port"`
	ConnectionStr string `yaml:"connection_str"`

	// Threads is the number of workers, each with its own connection.
	Threads       int           `yaml:"threads"`
	QueueCapacity int           `yaml:"queue_capacity"`
	PollInterval  time.Duration `yaml:"poll_interval"`

	// PanicOnDBErrors aborts the process on any database failure.
	PanicOnDBErrors bool `yaml:"panic_on_db_errors"`

	UseSSL     bool   `yaml:"use_ssl"`
	ServerCA   string `yaml:"server_ca"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`

	ProgramID string `yaml:"program_id"`

	// EnforceWriteVersion makes the upsert skip rows older than the stored one.
	EnforceWriteVersion bool `yaml:"enforce_write_version"`
	CreateSchema        bool `yaml:"create_schema"`

	// BatchSize is accepted for compatibility and unused.
	BatchSize int `yaml:"batch_size"`
}

// ConfigurationError reports missing or contradictory settings.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Msg, e.Err)
	}
	return "configuration: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Load reads path (skipped when empty), applies environment overrides and defaults.
// The result is not validated.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigurationError{Msg: fmt.Sprintf("config file %s is not in the expected format", path), Err: err}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// applyEnv overrides file settings with DATABASE_URL and INDEXER_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.ConnectionStr = v
	}
	if v, ok := lookup("INDEXER_PROGRAM_ID"); ok && v != "" {
		c.ProgramID = v
	}
	if v, ok := lookup("INDEXER_THREADS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Msg: "INDEXER_THREADS", Err: err}
		}
		c.Threads = n
	}
	if v, ok := lookup("INDEXER_PANIC_ON_DB_ERRORS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Msg: "INDEXER_PANIC_ON_DB_ERRORS", Err: err}
		}
		c.PanicOnDBErrors = b
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Threads == 0 {
		c.Threads = DefaultThreads
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate checks the settings needed before any worker is started.
func (c Config) Validate() error {
	if c.ConnectionStr == "" && (c.Host == "" || c.User == "") {
		return &ConfigurationError{Msg: fmt.Sprintf("%q, or %q and %q must be specified", "connection_str", "host", "user")}
	}
	if c.UseSSL {
		if c.ServerCA == "" {
			return &ConfigurationError{Msg: `"server_ca" must be specified when "use_ssl" is set`}
		}
		if (c.ClientCert == "") != (c.ClientKey == "") {
			return &ConfigurationError{Msg: `"client_cert" and "client_key" must be specified together`}
		}
	}
	if c.Threads < 1 {
		return &ConfigurationError{Msg: fmt.Sprintf("threads must be positive, got %d", c.Threads)}
	}
	if c.QueueCapacity < 1 {
		return &ConfigurationError{Msg: fmt.Sprintf("queue_capacity must be positive, got %d", c.QueueCapacity)}
	}
	if c.PollInterval <= 0 {
		return &ConfigurationError{Msg: fmt.Sprintf("poll_interval must be positive, got %s", c.PollInterval)}
	}
	if c.ProgramID == "" {
		return &ConfigurationError{Msg: `"program_id" must be specified`}
	}
	if _, err := inscription.ParsePublicKey(c.ProgramID); err != nil {
		return &ConfigurationError{Msg: `invalid "program_id"`, Err: err}
	}
	return nil
}

// ConnString returns connection_str, or a keyword/value string built from host, user and port.
func (c Config) ConnString() string {
	if c.ConnectionStr != "" {
		return c.ConnectionStr
	}
	return fmt.Sprintf("host=%s user=%s port=%d", c.Host, c.User, c.Port)
}

// Program returns the parsed program id. Call Validate first.
func (c Config) Program() inscription.PublicKey {
	k, _ := inscription.ParsePublicKey(c.ProgramID)
	return k
}
