package domain_test

import (
	"testing"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseUser() domain.User {
	return domain.User{
		ID:       "01J0000000000000000000000",
		Username: "devrock",
		Email:    "devrock@example.com",
		Roles:    []string{"admin"},
	}
}

func TestDecodePatchTracksPresentFields(t *testing.T) {
	p, err := domain.DecodePatch[domain.UserFields]([]byte(`{"email":"new@example.com"}`))
	require.NoError(t, err)
	assert.True(t, p.Has("email"))
	assert.False(t, p.Has("username"))
	assert.False(t, p.Has("roles"))
	assert.Equal(t, "new@example.com", p.Value.Email)
}

func TestDecodePatchRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": `{"password":"x"}`,
		"not an object": `["email"]`,
		"null":          `null`,
		"bad type":      `{"roles":"admin"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := domain.DecodePatch[domain.UserFields]([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestUserApply(t *testing.T) {
	t.Run("only named fields change", func(t *testing.T) {
		u := baseUser()
		p, err := domain.DecodePatch[domain.UserFields]([]byte(`{"roles":["Ops","admin","ops"]}`))
		require.NoError(t, err)

		require.NoError(t, u.Apply(p))
		assert.Equal(t, []string{"admin", "ops"}, u.Roles)
		assert.Equal(t, "devrock", u.Username)
		assert.Equal(t, "devrock@example.com", u.Email)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		u := baseUser()
		p, err := domain.DecodePatch[domain.UserFields]([]byte(`{}`))
		require.NoError(t, err)
		require.True(t, p.Empty())
		require.NoError(t, u.Apply(p))
		assert.Equal(t, baseUser(), u)
	})

	t.Run("username normalised", func(t *testing.T) {
		u := baseUser()
		require.NoError(t, u.Apply(domain.NewPatch(domain.UserFields{Username: " DevRock2 "}, "username")))
		assert.Equal(t, "devrock2", u.Username)
	})

	t.Run("invalid value leaves user unchanged", func(t *testing.T) {
		u := baseUser()
		p := domain.NewPatch(domain.UserFields{Email: "not-an-email", Roles: []string{"x"}}, "email", "roles")
		require.ErrorIs(t, u.Apply(p), domain.ErrInvalidEmail)
		assert.Equal(t, baseUser(), u)
	})

	t.Run("bad role", func(t *testing.T) {
		u := baseUser()
		err := u.Apply(domain.NewPatch(domain.UserFields{Roles: []string{"has space"}}, "roles"))
		require.ErrorIs(t, err, domain.ErrInvalidRole)
	})
}

func TestValidatePassword(t *testing.T) {
	require.ErrorIs(t, domain.ValidatePassword("short"), domain.ErrWeakPassword)
	require.NoError(t, domain.ValidatePassword("P@ssw0rd!"))
}
