package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 9100\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, AuthModeStatic, cfg.Auth.Mode)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 0.0.0.0
  port: 8087
log:
  level: debug
  format: json
auth:
  mode: jwt
  jwtSecret: topsecret
rateLimit:
  enabled: true
  rate: 10
  burst: 20
  trustedProxies:
    - 10.0.0.0/8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "topsecret", cfg.Auth.JWTSecret)
	assert.Equal(t, float64(10), cfg.RateLimit.Rate)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.RateLimit.TrustedProxies)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Auth.Mode = "oauth"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Auth.Mode = AuthModeJWT
	assert.Error(t, cfg.Validate(), "jwt mode without secret")
	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.RateLimit.Rate = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}
