package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
port: 9090
api_key: "k-123"
count_cameras: 2
credentials:
  - session_id: "s0"
    publisher_token: "p0"
    subscriber_token: "u0"
  - session_id: "s1"
    publisher_token: "p1"
    subscriber_token: "u1"
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(testYAML), 0o644))
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, 2, cfg.CountCameras)
	assert.Equal(t, 4, cfg.MaxCountCameras)
	assert.Equal(t, 2, cfg.SlotsPerDevice)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	require.Len(t, cfg.Credentials, 2)
	assert.Equal(t, domain.Credential{SessionID: "s1", PublisherToken: "p1", SubscriberToken: "u1"}, cfg.Credentials[1])
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1, cfg.CountCameras)
	assert.Equal(t, "release", cfg.Mode)
	assert.Empty(t, cfg.Credentials)
}

func TestValidate(t *testing.T) {
	base := Config{CountCameras: 1, MaxCountCameras: 4, SlotsPerDevice: 2, RateLimit: 1, RateInterval: time.Second}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no grid", func(c *Config) { c.MaxCountCameras = 0 }},
		{"too many cameras", func(c *Config) { c.CountCameras = 5 }},
		{"negative cameras", func(c *Config) { c.CountCameras = -1 }},
		{"no slots per device", func(c *Config) { c.SlotsPerDevice = 0 }},
		{"no rate limit", func(c *Config) { c.RateLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
