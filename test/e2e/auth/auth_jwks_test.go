package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoveryAndJWKS(t *testing.T) {
	client := newClient(t)
	ctx := t.Context()

	doc, err := client.GetDiscovery(ctx)
	require.NoError(t, err)
	issuer := strings.TrimSuffix(testIssuer, "/")
	require.Equal(t, issuer, doc.Issuer)
	require.Equal(t, issuer+"/connect/token", doc.TokenEndpoint)
	require.Equal(t, issuer+"/.well-known/jwks.json", doc.JWKSURI)
	require.ElementsMatch(t, []string{"client_credentials", "password", "refresh_token"}, doc.GrantTypesSupported)

	jwks, err := client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	k := jwks.Keys[0]
	require.Equal(t, "EdDSA", k.Alg)
	require.Equal(t, "OKP", k.Kty)
	require.Equal(t, "sig", k.Use)
	require.NotEmpty(t, k.Kid)
}

func TestAlgorithms(t *testing.T) {
	for _, alg := range []string{"ES256", "RS256"} {
		t.Run(alg, func(t *testing.T) {
			client := authsdkClient(t, map[string]string{"AUTH_KEYS_ALGORITHM": alg})
			ctx := t.Context()

			jwks, err := client.GetJWKS(ctx)
			require.NoError(t, err)
			require.Equal(t, alg, jwks.Keys[0].Alg)

			tok, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
			require.NoError(t, err)
			verifier, err := client.NewVerifier(ctx, testIssuer, testAudience)
			require.NoError(t, err)
			_, err = verifier.Verify(tok.AccessToken)
			require.NoError(t, err)
		})
	}
}
