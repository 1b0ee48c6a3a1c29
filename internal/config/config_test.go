package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() Config {
	c := Config{Host: "localhost", User: "indexer", ProgramID: testProgramID}
	c.setDefaults()
	return c
}

func TestLoadGeyserJSONConfig(t *testing.T) {
	path := writeFile(t, "plugin.json", `{
		"host": "db.internal",
		"user": "geyser",
		"port": 6432,
		"threads": 4,
		"batch_size": 10,
		"panic_on_db_errors": true,
		"program_id": "`+testProgramID+`"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, uint16(6432), cfg.Port)
	assert.Equal(t, 4, cfg.Threads)
	assert.True(t, cfg.PanicOnDBErrors)
	assert.Equal(t, DefaultQueueCapacity, cfg.QueueCapacity)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, "host=db.internal user=geyser port=6432", cfg.ConnString())
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLDefaults(t *testing.T) {
	path := writeFile(t, "indexer.yaml", "connection_str: postgres://a:b@c/d\npoll_interval: 250ms\nprogram_id: "+testProgramID+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreads, cfg.Threads)
	assert.Equal(t, uint16(DefaultPort), cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "postgres://a:b@c/d", cfg.ConnString())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x:y@z/w")
	t.Setenv("INDEXER_THREADS", "3")
	t.Setenv("INDEXER_PROGRAM_ID", testProgramID)
	t.Setenv("INDEXER_PANIC_ON_DB_ERRORS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x:y@z/w", cfg.ConnString())
	assert.Equal(t, 3, cfg.Threads)
	assert.True(t, cfg.PanicOnDBErrors)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "threads: [1, 2"))
	var cerr *ConfigurationError
	assert.True(t, errors.As(err, &cerr))

	t.Setenv("INDEXER_THREADS", "many")
	_, err = Load("")
	assert.True(t, errors.As(err, &cerr))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"host and user", func(c *Config) {}, true},
		{"connection string only", func(c *Config) { c.Host, c.User, c.ConnectionStr = "", "", "host=x" }, true},
		{"missing user", func(c *Config) { c.User = "" }, false},
		{"ssl without ca", func(c *Config) { c.UseSSL = true }, false},
		{"ssl with ca", func(c *Config) { c.UseSSL, c.ServerCA = true, "ca.pem" }, true},
		{"ssl with client pair", func(c *Config) {
			c.UseSSL, c.ServerCA, c.ClientCert, c.ClientKey = true, "ca.pem", "c.pem", "k.pem"
		}, true},
		{"ssl with cert but no key", func(c *Config) { c.UseSSL, c.ServerCA, c.ClientCert = true, "ca.pem", "c.pem" }, false},
		{"zero threads", func(c *Config) { c.Threads = -1 }, false},
		{"zero queue", func(c *Config) { c.QueueCapacity = -5 }, false},
		{"missing program", func(c *Config) { c.ProgramID = "" }, false},
		{"bad program", func(c *Config) { c.ProgramID = "not-base58!" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigurationError
			assert.True(t, errors.As(err, &cerr), "want ConfigurationError, got %v", err)
		})
	}
}

func TestProgram(t *testing.T) {
	c := validConfig()
	assert.Equal(t, testProgramID, c.Program().String())
}
