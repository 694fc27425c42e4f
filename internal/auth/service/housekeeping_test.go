package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingRemovesExpiredRefreshTokens(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	live := f.passwordGrant(t, "offline_access")
	stale := f.passwordGrant(t, "offline_access")
	_, err := f.tokens.Exchange(ctx, refreshRequest(stale.RefreshToken))
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.RunOnce(ctx)

	// Consumed tokens go, unexpired ones stay.
	_, err = f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(stale.RefreshToken))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(live.RefreshToken))
	require.NoError(t, err)

	hk.Now = func() time.Time { return time.Now().Add(DefaultRefreshTTL + time.Hour) }
	hk.RunOnce(ctx)
	_, err = f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(live.RefreshToken))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	hk := NewHousekeepingService(f.store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Millisecond)
	hk.Start()
	time.Sleep(30 * time.Millisecond)
	hk.Stop()
}
