package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Server.Port = 0
	cfg.Database.File = filepath.Join(dir, "auth.db")
	cfg.Database.PepperFile = filepath.Join(dir, "pepper")
	cfg.Housekeeping.Interval = time.Hour
	return cfg
}

// serve starts the application on a loopback listener and returns its base
// URL. The server stops when the test ends.
func serve(t *testing.T, cfg Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	application, err := New(ctx, cfg, testLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return "http://" + ln.Addr().String()
}

func clientCredentials(t *testing.T, base, id, secret, scope string) *http.Response {
	t.Helper()
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {id},
		"client_secret": {secret},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	resp, err := http.Post(base+"/connect/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServeWithDefaultSeed(t *testing.T) {
	cfg := testConfig(t)
	base := serve(t, cfg)

	resp, err := http.Get(base + "/livez")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tok := clientCredentials(t, base, "aixasz-client", "f128d22c-412d-469e-94c0-e1eb366e7f1b", "api")
	require.Equal(t, http.StatusOK, tok.StatusCode)

	var body authsdk.TokenResponse
	require.NoError(t, json.NewDecoder(tok.Body).Decode(&body))
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "api", body.Scope)

	req, err := http.NewRequest(http.MethodGet, base+"/api/version", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSeedFileAtStartup(t *testing.T) {
	cfg := testConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
clients:
  - client_id: reporting
    client_secret: reporting-secret
    display_name: Reporting
    grant_types: [client_credentials]
    scopes: [api]
`), 0o600))
	cfg.Seed.File = seedPath

	base := serve(t, cfg)

	assert.Equal(t, http.StatusOK, clientCredentials(t, base, "reporting", "reporting-secret", "").StatusCode)
	// The built-in seed is not applied when a file is configured.
	assert.Equal(t, http.StatusUnauthorized,
		clientCredentials(t, base, "aixasz-client", "f128d22c-412d-469e-94c0-e1eb366e7f1b", "").StatusCode)
}

func TestSeedCommandIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := Seed(ctx, cfg, "", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, first.ClientsCreated)
	assert.Equal(t, 1, first.UsersCreated)

	again, err := Seed(ctx, cfg, "", testLogger())
	require.NoError(t, err)
	assert.Zero(t, again.ClientsCreated)
	assert.Equal(t, 3, again.ClientsSkipped)
	assert.Equal(t, 1, again.UsersSkipped)
}

func TestPersistentKeysSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keys.StorageMode = StoragePersistent
	cfg.Keys.MasterKeyPath = filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(cfg.Keys.MasterKeyPath, []byte("0123456789abcdef0123456789abcdef"), 0o600))
	ctx := context.Background()

	first, err := New(ctx, cfg, testLogger())
	require.NoError(t, err)
	before, err := first.keyManager.CurrentSigningKey()
	require.NoError(t, err)
	require.NoError(t, first.Close())

	res, err := RotateKeys(ctx, cfg, testLogger())
	require.NoError(t, err)
	require.NotEqual(t, before.KID(), res.Current.Kid)

	second, err := New(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	cur, err := second.keyManager.CurrentSigningKey()
	require.NoError(t, err)
	assert.Equal(t, res.Current.Kid, cur.KID())
	_, ok := second.keyManager.Lookup(before.KID())
	assert.True(t, ok, "the demoted key stays verifiable")
}

func TestRotateKeysRequiresPersistentMode(t *testing.T) {
	cfg := testConfig(t)
	_, err := RotateKeys(context.Background(), cfg, testLogger())
	require.Error(t, err)
}

func TestRedisLockoutIsReadinessChecked(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Lockout.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.Keys.Algorithm = jwtx.AlgorithmES256

	base := serve(t, cfg)

	resp, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mr.Close()

	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lockout.RedisURL = "redis://127.0.0.1:1/0"

	_, err := New(context.Background(), cfg, testLogger())
	require.Error(t, err)
}
