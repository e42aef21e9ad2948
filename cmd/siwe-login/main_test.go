package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/layer-3/trusttag/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	keyHex = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNonceCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/nonce", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nonce":"abcdef0123456789"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "nonce", "--server", srv.URL+"/api")
	require.NoError(t, err)
	assert.Equal(t, "abcdef0123456789", strings.TrimSpace(out))
}

func TestLoginCommand_RequiresKey(t *testing.T) {
	t.Setenv("TRUSTTAG_PRIVATE_KEY", "")

	_, err := execute(t, "login", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key is required")
}

func TestLoginCommand_InvalidKey(t *testing.T) {
	_, err := execute(t, "login", "--key", "not-hex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid private key")
}

func TestDefaultServerMatchesServerConfig(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)

	u, err := url.Parse(rootCmd.PersistentFlags().Lookup("server").DefValue)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(cfg.Server.Addr, ":"), u.Port())
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
