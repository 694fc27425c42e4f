package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeed(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)

	require.Len(t, seed.Clients, 3)
	cc := seed.Clients[0]
	assert.Equal(t, "aixasz-client", cc.ID)
	assert.Equal(t, "f128d22c-412d-469e-94c0-e1eb366e7f1b", cc.Secret)
	assert.Equal(t, "Aixasz Sample OpenIddict ClientCredentials", cc.DisplayName)
	assert.True(t, cc.Confidential)
	assert.Equal(t, []string{"client_credentials"}, cc.GrantTypes)
	assert.Equal(t, []string{"api"}, cc.Scopes)

	api := seed.Clients[1]
	assert.Equal(t, "sample-api", api.ID)
	assert.Equal(t, []string{"password", "refresh_token"}, api.GrantTypes)
	assert.Equal(t, []string{"openid", "email", "profile", "roles", "offline_access"}, api.Scopes)

	require.Len(t, seed.Users, 1)
	u := seed.Users[0]
	assert.Equal(t, "devrock", u.Username)
	assert.Equal(t, "P@ssw0rd!", u.Password)
	assert.Equal(t, "devrock@example.com", u.Email)
	assert.Equal(t, []string{"admin"}, u.Roles)
}

func TestParseSeed(t *testing.T) {
	t.Run("public client", func(t *testing.T) {
		seed, err := ParseSeed([]byte(`
clients:
  - client_id: spa
    confidential: false
    grant_types: [password]
`))
		require.NoError(t, err)
		require.Len(t, seed.Clients, 1)
		assert.False(t, seed.Clients[0].Confidential)
		assert.Empty(t, seed.Clients[0].Secret)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseSeed([]byte("clients: {client_id: [x"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSeed("does-not-exist.yaml")
		require.Error(t, err)
	})
}
