package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	v, err := Load("")
	require.NoError(t, err)

	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".pairchat", "accounts.toml"), cfg.Accounts.Path)
	assert.Equal(t, filepath.Join(home, ".pairchat", "ledger.db"), cfg.Ledger.Path)
	assert.Empty(t, cfg.Catalog.Path)
	assert.False(t, cfg.Catalog.Watch)
	assert.Equal(t, int64(DefaultLimit), cfg.Quota.DefaultLimit)
	assert.Equal(t, domain.WindowMonth, cfg.Quota.Period)
	assert.Equal(t, DefaultModelName, cfg.Model.Name)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, DefaultListen, cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, `
[quota]
default_limit = 5000
period = "week"

[model]
name = "gpt-4.1-mini"
timeout = "15s"

[log]
level = "debug"
json = true
`)

	v, err := Load("")
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), cfg.Quota.DefaultLimit)
	assert.Equal(t, domain.WindowWeek, cfg.Quota.Period)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model.Name)
	assert.Equal(t, 15*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, "[quota]\ndefault_limit = 5000\n")
	t.Setenv("PAIRCHAT_QUOTA_DEFAULT_LIMIT", "42")
	t.Setenv("PAIRCHAT_MODEL_API_KEY", "sk-test")
	t.Setenv("PAIRCHAT_QUOTA_PERIOD", "DAY")

	v, err := Load("")
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Quota.DefaultLimit)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, domain.WindowDay, cfg.Quota.Period)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nlisten = \"0.0.0.0:9000\"\n"), 0o600))

	v, err := Load(path)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
}

func TestLoadMalformedConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, "[quota\n")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidateCollectsErrors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, `
[quota]
default_limit = -1
period = "fortnight"

[catalog]
watch = true
`)

	v, err := Load("")
	require.NoError(t, err)
	_, err = Decode(v)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "quota.default_limit must not be negative")
	assert.Contains(t, err.Error(), `quota.period "fortnight"`)
	assert.Contains(t, err.Error(), "catalog.watch requires catalog.path")
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".pairchat")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
}
