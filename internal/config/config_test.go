package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tessro/startify/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[backend]
base_url = "http://robot.local:5000"

[poll]
snapshot_interval = 1000

[refetch]
skip_delay = 0
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://robot.local:5000", cfg.Backend.BaseURL)
	assert.Equal(t, 1000, cfg.Poll.SnapshotInterval)
	assert.Equal(t, 5000, cfg.Poll.DevicesInterval)
	assert.Equal(t, 0, cfg.Refetch.SkipDelay, "explicit zero must survive")
	assert.Equal(t, 1000, cfg.Refetch.TransferDelay)
	assert.Equal(t, "startify.events", cfg.Publish.Subject)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, apperrors.ErrConfigNotFound)
}

func TestLoadFromInvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[poll\nsnapshot_interval = ")
	_, err := LoadFrom(path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[poll]\nsnapshot_interval = 1000\n")

	t.Setenv("STARTIFY_POLL_SNAPSHOT_INTERVAL", "750")
	t.Setenv("STARTIFY_JOURNAL_ENABLED", "true")
	t.Setenv("STARTIFY_BACKEND_BASE_URL", "https://example.test")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.Poll.SnapshotInterval)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "https://example.test", cfg.Backend.BaseURL)
}

func TestEnvOverrideBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "")
	t.Setenv("STARTIFY_BACKEND_RETRIES", "lots")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTIFY_BACKEND_RETRIES")
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	writeFile(t, ".env", "STARTIFY_LOG_LEVEL=debug\nSTARTIFY_TUI_THEME=mocha\n")
	t.Setenv("STARTIFY_TUI_THEME", "latte")
	// Registered so t.Setenv restores it; godotenv sets the real value.
	t.Setenv("STARTIFY_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("STARTIFY_LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "latte", cfg.TUI.Theme)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://x" }, "backend: invalid base_url"},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }, "timeout must be positive"},
		{"fast poll", func(c *Config) { c.Poll.HealthInterval = 10 }, "health_interval must be at least 100 ms"},
		{"negative delay", func(c *Config) { c.Refetch.SkipDelay = -1 }, "delays must be non-negative"},
		{"theme", func(c *Config) { c.TUI.Theme = "neon" }, "invalid theme"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
		{"metrics addr", func(c *Config) { c.Metrics.Addr = "9090" }, "metrics: invalid addr"},
		{"nats subject", func(c *Config) { c.Publish.NATSURL = "nats://localhost:4222"; c.Publish.Subject = "" }, "subject is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsSections(t *testing.T) {
	cfg := Default()
	cfg.Backend.Retries = -1
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, strings.Split(err.Error(), "\n"), 2)
}

func TestSetValue(t *testing.T) {
	cfg := Default()
	require.NoError(t, SetValue(cfg, "poll.modules_interval", "1500"))
	require.NoError(t, SetValue(cfg, "journal.enabled", "true"))
	require.NoError(t, SetValue(cfg, "publish.subject", "robot.playback"))
	assert.Equal(t, 1500, cfg.Poll.ModulesInterval)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "robot.playback", cfg.Publish.Subject)

	assert.ErrorContains(t, SetValue(cfg, "poll.modules_interval", "soon"), "must be an integer")
	assert.ErrorContains(t, SetValue(cfg, "journal.enabled", "maybe"), "true or false")
	assert.ErrorContains(t, SetValue(cfg, "poll.nope", "1"), "unknown config key")
}

func TestKeysCoverEverySection(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "backend.base_url")
	assert.Contains(t, keys, "refetch.transfer_timeout")
	assert.Contains(t, keys, "metrics.addr")
	assert.IsIncreasing(t, keys)
}

func TestInitAndSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "startify", "config.toml")
	require.NoError(t, Init(path))
	assert.Error(t, Init(path), "init must not overwrite")

	cfg, err := Set(path, "poll.snapshot_interval", "1200")
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Poll.SnapshotInterval)

	reloaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, reloaded.Poll.SnapshotInterval)
	assert.Equal(t, Default().Backend, reloaded.Backend)

	_, err = Set(path, "poll.snapshot_interval", "5")
	assert.Error(t, err, "invalid values are not written")
	reloaded, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, reloaded.Poll.SnapshotInterval)
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	got := make(chan *Config, 4)
	w, err := Watch(context.Background(), path, func(c *Config) { got <- c }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// Invalid edits are ignored.
	writeFile(t, path, "[poll]\nsnapshot_interval = 1\n")
	select {
	case c := <-got:
		t.Fatalf("unexpected reload: %+v", c.Poll)
	case <-time.After(150 * time.Millisecond):
	}

	cfg := Default()
	cfg.Poll.SnapshotInterval = 900
	require.NoError(t, Save(cfg, path))

	select {
	case c := <-got:
		assert.Equal(t, 900, c.Poll.SnapshotInterval)
	case <-time.After(3 * time.Second):
		t.Fatal("config change never delivered")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(Default(), path))

	got := make(chan *Config, 1)
	w, err := Watch(context.Background(), path, func(c *Config) { got <- c }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1\n")
	select {
	case <-got:
		t.Fatal("sibling file triggered a reload")
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
