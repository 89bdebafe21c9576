package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.MaxBots)
	assert.False(t, cfg.UseMemoryStore)
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.ReconnectDelay)
	assert.Equal(t, 10, cfg.Lifecycle.ReconnectMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.PairingTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Lifecycle.PairingTTL)
	assert.Equal(t, 3*time.Second, cfg.Lifecycle.RestartDelay)
	assert.False(t, cfg.Twilio.Enabled())
	assert.Equal(t, "PostgreSQL Database", cfg.StorageType())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAX_BOTS", "2")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("RECONNECT_DELAY", "250ms")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "0")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WHATSAPP_FROM", "whatsapp:+14155238886")
	t.Setenv("INSTANCE_CONNECTION_NAME", "proj:region:db")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxBots)
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, 250*time.Millisecond, cfg.Lifecycle.ReconnectDelay)
	assert.Equal(t, 0, cfg.Lifecycle.ReconnectMaxAttempts)
	assert.True(t, cfg.Twilio.Enabled())
	assert.True(t, cfg.Production())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MAX_BOTS", "0")
	t.Setenv("RECONNECT_MULTIPLIER", "0.5")

	_, err := Load(New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max bots must be positive")
	assert.Contains(t, err.Error(), "reconnect multiplier")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bots.env")
	require.NoError(t, os.WriteFile(path, []byte("BOTFLEET_TEST_VALUE=from-file\n"), 0o600))

	orig := EnvFiles
	EnvFiles = []string{filepath.Join(dir, "missing.env"), path}
	t.Cleanup(func() { EnvFiles = orig })
	t.Setenv("BOTFLEET_TEST_VALUE", "")
	os.Unsetenv("BOTFLEET_TEST_VALUE")

	assert.Equal(t, path, LoadEnvFiles())
	assert.Equal(t, "from-file", os.Getenv("BOTFLEET_TEST_VALUE"))
}
