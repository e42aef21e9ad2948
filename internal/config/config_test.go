package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", c.Server.Addr)
	assert.False(t, c.IsProduction())
	assert.Equal(t, "siwe", c.Auth.CookieName)
	assert.Equal(t, 5*time.Minute, c.Auth.NonceTTL)
	assert.Equal(t, time.Hour, c.Auth.SessionTTL)
	assert.True(t, c.Auth.ClearNonceOnFailure)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Redis.URL)
	assert.Empty(t, c.WorldID.AppID)
	assert.Equal(t, "https://developer.worldcoin.org", c.WorldID.BaseURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trusttag.yaml")
	yaml := `
server:
  addr: ":8080"
  environment: production
  allowed_origins:
    - https://trusttag.xyz
auth:
  nonce_ttl: 2m
  clear_nonce_on_failure: false
siwe:
  domains: [trusttag.xyz]
  chain_id: 480
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TRUSTTAG_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("TRUSTTAG_LOG_LEVEL", "debug")
	t.Setenv("TRUSTTAG_WORLDID_APP_ID", "app_staging_123")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.True(t, c.IsProduction())
	assert.Equal(t, []string{"https://trusttag.xyz"}, c.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, c.Auth.NonceTTL)
	assert.False(t, c.Auth.ClearNonceOnFailure)
	assert.Equal(t, []string{"trusttag.xyz"}, c.Siwe.Domains)
	assert.Equal(t, int64(480), c.Siwe.ChainID)
	assert.Equal(t, "redis://localhost:6379/1", c.Redis.URL)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "app_staging_123", c.WorldID.AppID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TRUSTTAG_AUTH_NONCE_TTL", "0s")

	_, err := Load("")
	assert.ErrorContains(t, err, "nonce_ttl")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
