package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store/drivers/sqlite"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newKeyManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, MaxPrevious: 2})
	require.NoError(t, err)
	return km
}

func ccToken(t *testing.T, f *fixture) string {
	t.Helper()
	resp, err := f.tokens.Exchange(context.Background(), domain.TokenRequest{
		GrantType:    domain.GrantClientCredentials,
		ClientID:     ccClientID,
		ClientSecret: ccSecret,
	})
	require.NoError(t, err)
	return resp.AccessToken
}

func TestEphemeralRotation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	svc := &KeyRotationService{Keys: f.keys, Audit: f.audit}

	first, err := f.keys.CurrentSigningKey()
	require.NoError(t, err)
	before := ccToken(t, f)

	res, err := svc.Rotate(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.KID(), res.Current.Kid)
	require.Empty(t, res.Dropped)

	// Old tokens keep verifying, new tokens use the new key.
	_, err = f.access.Verify(before)
	require.NoError(t, err)
	_, err = f.access.Verify(ccToken(t, f))
	require.NoError(t, err)
	require.Len(t, f.keys.JWKS().Keys, 2)

	keys, err := svc.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, domain.KeyStateCurrent, keys[0].State)
	require.Equal(t, res.Current.Kid, keys[0].Kid)
	require.Equal(t, domain.KeyStatePrevious, keys[1].State)

	t.Run("retire", func(t *testing.T) {
		require.ErrorIs(t, svc.RetireKey(ctx, res.Current.Kid), ErrInvalidInput)
		require.ErrorIs(t, svc.RetireKey(ctx, "key-unknown"), ErrNotFound)

		require.NoError(t, svc.RetireKey(ctx, first.KID()))
		_, err := f.access.Verify(before)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("ring is bounded", func(t *testing.T) {
		var dropped []string
		for range 4 {
			r, err := svc.Rotate(ctx)
			require.NoError(t, err)
			dropped = append(dropped, r.Dropped...)
		}
		require.NotEmpty(t, dropped)
		require.Len(t, f.keys.PreviousSigningKeys(), 2)
	})
}

func TestPersistentKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	cipher, err := cryptox.NewKeyCipher([]byte("test master key"))
	require.NoError(t, err)

	now := time.Now()
	clock := func() time.Time { return now }

	km := newKeyManager(t)
	svc := &KeyRotationService{Store: st, Keys: km, Cipher: cipher, GracePeriod: time.Hour, Now: clock}

	// An empty store gets a first key.
	require.NoError(t, svc.LoadKeys(ctx))
	require.True(t, km.IsReady())
	first, err := km.CurrentSigningKey()
	require.NoError(t, err)

	stored, err := st.SigningKeys().GetSigningKeyByKid(ctx, first.KID())
	require.NoError(t, err)
	require.Equal(t, domain.KeyStateCurrent, stored.State)
	require.NotContains(t, string(stored.PrivateKeyEncrypted), "PRIVATE KEY")

	claims := jwtx.NewClaims(testIssuer, "svc", []string{testAudience}, time.Hour, now)
	token, err := first.Sign(jwtx.TypeAccessToken, claims)
	require.NoError(t, err)

	res, err := svc.Rotate(ctx)
	require.NoError(t, err)

	keys, err := svc.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	t.Run("restart restores the ring", func(t *testing.T) {
		restarted := newKeyManager(t)
		again := &KeyRotationService{Store: st, Keys: restarted, Cipher: cipher, Now: clock}
		require.NoError(t, again.LoadKeys(ctx))

		cur, err := restarted.CurrentSigningKey()
		require.NoError(t, err)
		require.Equal(t, res.Current.Kid, cur.KID())

		v := jwtx.NewVerifier(restarted, jwtx.VerifyOptions{Issuer: testIssuer, Now: clock})
		_, err = v.Verify(token)
		require.NoError(t, err)
	})

	t.Run("wrong master key", func(t *testing.T) {
		other, err := cryptox.NewKeyCipher([]byte("another key"))
		require.NoError(t, err)
		bad := &KeyRotationService{Store: st, Keys: newKeyManager(t), Cipher: other, Now: clock}
		require.Error(t, bad.LoadKeys(ctx))
	})

	t.Run("grace period ends", func(t *testing.T) {
		later := now.Add(2 * time.Hour)
		svc.Now = func() time.Time { return later }

		hk := NewHousekeepingService(st, svc, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
		hk.Now = svc.Now
		hk.RunOnce(ctx)

		_, ok := km.Lookup(first.KID())
		require.False(t, ok)
		_, err := st.SigningKeys().GetSigningKeyByKid(ctx, first.KID())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("retire", func(t *testing.T) {
		_, err := svc.Rotate(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.RetireKey(ctx, res.Current.Kid))

		k, err := st.SigningKeys().GetSigningKeyByKid(ctx, res.Current.Kid)
		require.NoError(t, err)
		require.Equal(t, domain.KeyStateRetired, k.State)
		require.ErrorIs(t, svc.RetireKey(ctx, res.Current.Kid), ErrInvalidInput)
	})
}
