package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// TestKeyRotation rotates the live ring through the admin API. Tokens
// signed before the rotation keep verifying until the old key is retired.
func TestKeyRotation(t *testing.T) {
	client := newClient(t)
	ctx := t.Context()
	admin := adminSession(t, client)

	before, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
	require.NoError(t, err)

	listed, err := admin.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, listed.Keys, 1)
	oldKid := listed.Keys[0].Kid

	rotated, err := admin.RotateKey(ctx)
	require.NoError(t, err)
	require.NotEqual(t, oldKid, rotated.Current.Kid)
	require.Equal(t, "current", rotated.Current.State)

	jwks, err := client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2, "the previous key stays published")

	after, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
	require.NoError(t, err)

	verifier, err := client.NewVerifier(ctx, testIssuer, testAudience)
	require.NoError(t, err)
	_, err = verifier.Verify(before.AccessToken)
	require.NoError(t, err, "old tokens verify during the grace period")
	_, err = verifier.Verify(after.AccessToken)
	require.NoError(t, err)

	require.NoError(t, admin.RetireKey(ctx, oldKid))

	verifier, err = client.NewVerifier(ctx, testIssuer, testAudience)
	require.NoError(t, err)
	_, err = verifier.Verify(before.AccessToken)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)

	// The current key cannot be retired.
	require.Error(t, admin.RetireKey(ctx, rotated.Current.Kid))
}

func TestPersistentKeyMode(t *testing.T) {
	masterKey := testcontainers.ContainerFile{
		Reader:            strings.NewReader("e2e-master-key-0123456789abcdef"),
		ContainerFilePath: "/data/master.key",
		FileMode:          0o644,
	}
	client := authsdk.NewSDKClient(setupAuthContainer(t, map[string]string{
		"AUTH_KEYS_STORAGE_MODE":    "persistent",
		"AUTH_KEYS_MASTER_KEY_PATH": "/data/master.key",
	}, masterKey))
	ctx := t.Context()
	admin := adminSession(t, client)

	rotated, err := admin.RotateKey(ctx)
	require.NoError(t, err)

	listed, err := admin.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, listed.Keys, 2)
	require.Equal(t, rotated.Current.Kid, listed.Keys[0].Kid)
	require.Equal(t, "previous", listed.Keys[1].State)

	tok, err := client.ClientCredentialsGrant(ctx, ccClientID, ccSecret, nil)
	require.NoError(t, err)
	verifier, err := client.NewVerifier(ctx, testIssuer, testAudience)
	require.NoError(t, err)
	claims, err := verifier.Verify(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, ccClientID, claims.Subject)
}
