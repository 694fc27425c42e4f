package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// HousekeepingService periodically removes expired and revoked refresh
// tokens and signing keys that are out of their grace period.
type HousekeepingService struct {
	Store    store.Store
	Keys     *KeyRotationService // optional
	Logger   *slog.Logger
	Interval time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(st store.Store, keys *KeyRotationService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Keys:     keys,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. A first pass runs immediately.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress pass has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one cleanup pass. Each step is independent; a failure
// is logged and the next step still runs.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	ctx = slogx.WithContext(ctx, s.Logger)
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	if n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", slogx.Err(err))
	} else {
		metrics.HousekeepingDeleted.WithLabelValues("refresh_token").Add(float64(n))
		s.Logger.Debug("deleted expired refresh tokens", "count", n)
	}

	if s.Keys != nil {
		if n, err := s.Keys.PruneExpired(ctx); err != nil {
			s.Logger.Error("failed to prune expired signing keys", slogx.Err(err))
		} else if n > 0 {
			s.Logger.Info("pruned expired signing keys from the ring", "count", n)
		}
	}

	if n, err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired signing keys", slogx.Err(err))
	} else {
		metrics.HousekeepingDeleted.WithLabelValues("signing_key").Add(float64(n))
		s.Logger.Debug("deleted expired signing keys", "count", n)
	}
}
