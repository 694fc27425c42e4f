package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/lockout"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store/drivers/sqlite"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://localhost:5000/"
	testAudience = "resource_server"

	ccClientID    = "aixasz-client"
	ccSecret      = "f128d22c-412d-469e-94c0-e1eb366e7f1b"
	pwClientID    = "sample-api"
	pwSecret      = "c44f6ec2-ce1e-4920-a4f9-3e77dd0793c9"
	adminClientID = "aixasz-admin"
	adminSecret   = "9b1d3f0e-admin-secret"

	testUsername = "devrock"
	testPassword = "P@ssw0rd!"
)

type testServer struct {
	*httptest.Server
	store *sqlite.Store
	keys  *jwtx.KeyManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, MaxPrevious: 2})
	require.NoError(t, err)
	lock, err := lockout.NewMemory(lockout.DefaultPolicy)
	require.NoError(t, err)

	access := jwtx.NewVerifier(keys, jwtx.VerifyOptions{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
		Type:     jwtx.TypeAccessToken,
	})
	creds := &service.StoreCredentials{Store: st}

	_, err = (&service.BootstrapService{Store: st}).Apply(context.Background(), service.Seed{
		Clients: []service.NewClient{
			{ID: ccClientID, Confidential: true, Secret: ccSecret, GrantTypes: []string{domain.GrantClientCredentials}, Scopes: []string{"api"}},
			{ID: pwClientID, Confidential: true, Secret: pwSecret, GrantTypes: []string{domain.GrantPassword, domain.GrantRefreshToken}, Scopes: domain.UserScopeCatalog},
			{ID: adminClientID, Confidential: true, Secret: adminSecret, GrantTypes: []string{domain.GrantClientCredentials}, Scopes: []string{"admin"}},
		},
		Users: []service.NewUser{
			{Username: testUsername, Email: "devrock@example.com", Password: testPassword, Roles: []string{"admin"}},
		},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(keys, access, testIssuer, "test", st, logger)
	r.TokenService = &service.TokenService{
		Credentials: creds,
		Store:       st,
		Issuer: &service.TokenIssuer{
			Keys:        keys,
			Issuer:      testIssuer,
			Audience:    testAudience,
			AccessTTL:   time.Hour,
			IdentityTTL: 20 * time.Minute,
		},
		Lockout: lock,
	}
	r.Introspection = &service.IntrospectionService{Credentials: creds, Store: st, Verifier: access}
	r.UserService = &service.UserService{Store: st, Lockout: lock}
	r.ClientService = &service.ClientService{Store: st}
	r.KeyRotationService = &service.KeyRotationService{Keys: keys}
	r.TokenLimit = httpx.RateLimitConfig{}
	r.AdminLimit = httpx.RateLimitConfig{}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st, keys: keys}
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, setup ...func(*http.Request)) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, fn := range setup {
		fn(req)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) token(t *testing.T, form url.Values) authsdk.TokenResponse {
	t.Helper()
	resp := s.postForm(t, "/connect/token", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out authsdk.TokenResponse
	decode(t, resp, &out)
	return out
}

func (s *testServer) clientToken(t *testing.T, id, secret string) string {
	t.Helper()
	return s.token(t, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {id},
		"client_secret": {secret},
	}).AccessToken
}

func (s *testServer) userToken(t *testing.T, scope string) authsdk.TokenResponse {
	t.Helper()
	return s.token(t, url.Values{
		"grant_type":    {"password"},
		"client_id":     {pwClientID},
		"client_secret": {pwSecret},
		"username":      {testUsername},
		"password":      {testPassword},
		"scope":         {scope},
	})
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func oauthError(t *testing.T, resp *http.Response) authsdk.OAuth2Error {
	t.Helper()
	var e authsdk.OAuth2Error
	decode(t, resp, &e)
	return e
}
