package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordGrantAndRefresh(t *testing.T) {
	var refreshes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "sample-api", r.PostForm.Get("client_id"))

		switch r.PostForm.Get("grant_type") {
		case authsdk.GrantPassword:
			assert.Equal(t, "openid offline_access", r.PostForm.Get("scope"))
			if r.PostForm.Get("password") != "P@ssw0rd!" {
				authsdk.ErrInvalidGrant.WriteError(w)
				return
			}
			writeJSON(w, authsdk.TokenResponse{
				AccessToken: "at-1", TokenType: "Bearer", ExpiresIn: 0,
				Scope: "openid offline_access", RefreshToken: "rt-1", IDToken: "id-1",
			})
		case authsdk.GrantRefreshToken:
			refreshes.Add(1)
			assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
			writeJSON(w, authsdk.TokenResponse{
				AccessToken: "at-2", TokenType: "Bearer", ExpiresIn: 3600,
				Scope: "openid offline_access", RefreshToken: "rt-2",
			})
		default:
			authsdk.ErrUnsupportedGrantType.WriteError(w)
		}
	})
	mux.HandleFunc("GET /connect/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-2", r.Header.Get("Authorization"))
		writeJSON(w, authsdk.UserInfoResponse{Sub: "u1", Name: "devrock"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := authsdk.NewSDKClient(srv.URL)

	_, err := client.PasswordGrant(ctx, "sample-api", "", "devrock", "wrong", []string{"openid", "offline_access"})
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
	var oe *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oe))
	require.Equal(t, http.StatusBadRequest, oe.StatusCode)
	require.Equal(t, "The username/password couple is invalid.", oe.Description)

	sess, err := client.AuthenticateWithPassword(ctx, "sample-api", "", "devrock", "P@ssw0rd!", []string{"openid", "offline_access"})
	require.NoError(t, err)
	require.Equal(t, "id-1", sess.IDToken())

	// ExpiresIn 0 means the session refreshes before the first call.
	info, err := sess.UserInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "devrock", info.Name)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, "rt-2", sess.RefreshToken())
}

func TestSessionWithoutRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, authsdk.TokenResponse{AccessToken: "at", TokenType: "Bearer", ExpiresIn: 0, Scope: "api"})
	}))
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)
	sess, err := client.AuthenticateWithClientCredentials(context.Background(), "aixasz-client", "secret", nil)
	require.NoError(t, err)

	_, err = sess.Version(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoRefreshToken)
	require.ErrorIs(t, sess.Revoke(context.Background()), authsdk.ErrNoRefreshToken)
}

func TestCheckScopesShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, authsdk.TokenResponse{AccessToken: "at", TokenType: "Bearer", ExpiresIn: 3600, Scope: "api"})
	}))
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)
	sess, err := client.AuthenticateWithClientCredentials(context.Background(), "aixasz-client", "secret", []string{"api"})
	require.NoError(t, err)

	_, err = sess.ListClients(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestParseNonOAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewSDKClient(srv.URL).GetLiveness(context.Background())
	var oe *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oe))
	require.Equal(t, http.StatusBadGateway, oe.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServerError, oe.Code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
