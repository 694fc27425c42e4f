package authsdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	authsdk.ErrInvalidGrant.WriteError(rec)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t,
		`{"error":"invalid_grant","error_description":"The username/password couple is invalid."}`,
		rec.Body.String())
}

func TestWriteErrorInvalidClientChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	authsdk.ErrInvalidClient.WriteError(rec)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_client", body["error"])
}

func TestOAuth2ErrorIsMatchesCode(t *testing.T) {
	require.ErrorIs(t, authsdk.ErrAccountLockedOut, authsdk.ErrInvalidGrant)
	require.ErrorIs(t, authsdk.ErrInvalidRefreshToken, authsdk.ErrInvalidGrant)
	require.NotErrorIs(t, authsdk.ErrInvalidClient, authsdk.ErrInvalidGrant)
}
