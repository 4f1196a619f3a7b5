package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jobwatch/internal/tracker"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, tracker.DefaultPollPolicy(), cfg.PollPolicy())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Store.Path)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_Overlay(t *testing.T) {
	path := writeFile(t, "jobwatch.yaml", `
api:
  base_url: https://reader.example.com/api
  timeout: 5s
polling:
  base_delay: 500ms
  max_retries: 4
store:
  path: /tmp/events.db
log:
  format: json
`)
	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "https://reader.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Polling.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Polling.MaxDelay, "absent field keeps default")
	assert.Equal(t, 1.5, cfg.Polling.BackoffFactor)
	assert.Equal(t, 4, cfg.Polling.MaxRetries)
	assert.Equal(t, "/tmp/events.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadFile(writeFile(t, "empty.yaml", "")))
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown log level", "log:\n  level: verbose\n", "level"},
		{"zero retries", "polling:\n  max_retries: 0\n", "max_retries"},
		{"negative retries", "polling:\n  max_retries: -3\n", "max_retries"},
		{"unknown key", "api:\n  base_uri: http://x\n", "base_uri"},
		{"bad duration", "polling:\n  base_delay: soon\n", "base_delay"},
		{"shrinking factor", "polling:\n  backoff_factor: 0.5\n", "backoff_factor"},
		{"non http url", "api:\n  base_url: ftp://host\n", "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.LoadFile(writeFile(t, "bad.yaml", tt.yaml))
			require.Error(t, err)

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Contains(t, schemaErr.Details, tt.want)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()

	err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	err = cfg.LoadFile(writeFile(t, "broken.yaml", "api: [unclosed\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIURL:   "https://env.example.com/api",
		EnvAPIToken: "secret",
		EnvDB:       "/var/lib/jobwatch.db",
		EnvLogLevel: "DEBUG",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, "/var/lib/jobwatch.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnv_EmptyIgnored(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(string) (string, bool) { return "", true })
	assert.Equal(t, Default(), cfg)

	cfg.ApplyEnv(noEnv)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "jobwatch.yaml", "api:\n  base_url: https://file.example.com/api\n")
	t.Setenv(EnvAPIURL, "https://env.example.com/api")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
}

func TestLoadEnv(t *testing.T) {
	const key = "JOBWATCH_TEST_DOTENV_TOKEN"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-dotenv\n")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
	require.NoError(t, LoadEnv(""))
}

func TestLoadEnv_ExistingWins(t *testing.T) {
	const key = "JOBWATCH_TEST_DOTENV_EXISTING"
	t.Setenv(key, "from-shell")

	require.NoError(t, LoadEnv(writeFile(t, ".env", key+"=from-dotenv\n")))
	assert.Equal(t, "from-shell", os.Getenv(key))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"max below base", func(c *Config) { c.Polling.MaxDelay = time.Second }, "max delay"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
