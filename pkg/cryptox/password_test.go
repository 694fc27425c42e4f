package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	SetPepper("test-pepper")
	os.Exit(m.Run())
}

func TestHashPassword(t *testing.T) {
	for _, secret := range []string{"P@ssw0rd!", "", strings.Repeat("x", 200), "密码🔒"} {
		hash, err := HashPassword(secret)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m="), hash)
		require.Len(t, strings.Split(hash, "$"), 6)

		require.NoError(t, VerifyPassword(secret, hash))
		require.ErrorIs(t, VerifyPassword(secret+"!", hash), ErrMismatch)
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, VerifyPassword("same", a))
	require.NoError(t, VerifyPassword("same", b))
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"wrong algorithm": "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing parts":   "$argon2id$v=19$m=19456",
		"bad params":      "$argon2id$v=19$nope$c2FsdA$aGFzaA",
		"bad salt":        "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad hash":        "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
		"old version":     "$argon2id$v=16$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, VerifyPassword("secret", encoded), ErrInvalidFormat)
		})
	}
}

func TestPepperChangesBreakVerification(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	SetPepper("another-pepper")
	defer SetPepper("test-pepper")

	require.ErrorIs(t, VerifyPassword("secret", hash), ErrMismatch)
}

func TestLoadPepperCreatesAndReuses(t *testing.T) {
	defer SetPepper("test-pepper")

	path := filepath.Join(t.TempDir(), "nested", "pepper")
	require.NoError(t, LoadPepper(path))
	first := Pepper()
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	SetPepper("")
	require.NoError(t, LoadPepper(path))
	require.Equal(t, first, Pepper())
}

func TestBurnVerifyDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { BurnVerify("anything") })
}
