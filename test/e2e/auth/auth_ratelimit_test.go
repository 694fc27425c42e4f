package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRateLimitTokenEndpoint starts a server with a tight token endpoint
// budget and checks the request after the burst is throttled.
func TestRateLimitTokenEndpoint(t *testing.T) {
	client := authsdkClient(t, map[string]string{
		"AUTH_RATE_LIMIT_TOKEN_REQUESTS": "3",
		"AUTH_RATE_LIMIT_TOKEN_WINDOW":   "1m",
		"AUTH_RATE_LIMIT_TOKEN_BURST":    "3",
	})
	ctx := t.Context()

	for i := range 3 {
		_, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
		require.NoError(t, err, "request %d should not be throttled", i+1)
	}

	_, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
	require.Equal(t, http.StatusTooManyRequests, statusOf(t, err))

	// Other clients have their own bucket.
	_, err = client.PasswordGrant(ctx, pwClientID, pwSecret, testUsername, testPassword, nil)
	require.NoError(t, err)
}
