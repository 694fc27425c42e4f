package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// Seed is provisioning data applied at startup or by `auth seed`.
type Seed struct {
	Clients []NewClient
	Users   []NewUser
}

// SeedResult counts what a seed run created. Existing records are skipped.
type SeedResult struct {
	ClientsCreated int
	ClientsSkipped int
	UsersCreated   int
	UsersSkipped   int
}

type BootstrapService struct {
	Store store.Store
}

// IsBootstrapped reports whether any client and any user exist.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	userEmpty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	clientEmpty, err := s.Store.Clients().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !userEmpty && !clientEmpty, nil
}

// Apply creates the seed's clients and users in one transaction. Clients
// are matched by id and users by normalized username; matches are left
// untouched, so running the same seed twice is a no-op.
func (s *BootstrapService) Apply(ctx context.Context, seed Seed) (SeedResult, error) {
	l := slogx.FromContext(ctx)
	var res SeedResult

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		clients := &ClientService{Store: tx}
		for _, c := range seed.Clients {
			if c.ID == "" {
				return errors.Join(ErrInvalidInput, errors.New("seed clients need an explicit id"))
			}
			_, err := tx.Clients().GetClientByID(ctx, c.ID)
			if err == nil {
				res.ClientsSkipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if _, _, err := clients.CreateClient(ctx, c); err != nil {
				l.Error("failed to seed client", slog.String("client_id", c.ID), slogx.Err(err))
				return err
			}
			res.ClientsCreated++
		}

		users := &UserService{Store: tx}
		for _, u := range seed.Users {
			_, err := tx.Users().GetUserByUsername(ctx, domain.NormalizeUsername(u.Username))
			if err == nil {
				res.UsersSkipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if _, err := users.CreateUser(ctx, u); err != nil {
				l.Error("failed to seed user", slog.String("username", u.Username), slogx.Err(err))
				return err
			}
			res.UsersCreated++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	l.Info("seed applied",
		slog.Int("clients_created", res.ClientsCreated),
		slog.Int("clients_skipped", res.ClientsSkipped),
		slog.Int("users_created", res.UsersCreated),
		slog.Int("users_skipped", res.UsersSkipped),
	)
	return res, nil
}
