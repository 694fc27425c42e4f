package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// InitAuthKeys builds the signing key ring and the rotation service that
// manages it.
//
// Storage modes:
//   - "ephemeral": one key is generated on startup and kept in memory.
//     Tokens issued before a restart no longer verify.
//   - "persistent": private keys are sealed with the master key and stored
//     in the database. The ring survives restarts and retired keys stay
//     verifiable until their grace period ends.
func InitAuthKeys(ctx context.Context, cfg KeysConfig, db store.Store, pub audit.Publisher, logger *slog.Logger) (*jwtx.KeyManager, *service.KeyRotationService, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm:   cfg.Algorithm,
		RSABits:     cfg.RSABits,
		MaxPrevious: cfg.MaxPrevious,
	}

	rotation := &service.KeyRotationService{
		Audit:       pub,
		GracePeriod: cfg.GracePeriod,
	}

	switch cfg.StorageMode {
	case StoragePersistent:
		cipher, err := cryptox.LoadKeyCipher(cfg.MasterKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load master key: %w", err)
		}
		km, err := jwtx.NewKeyManager(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		rotation.Store = db
		rotation.Keys = km
		rotation.Cipher = cipher
		if err := rotation.LoadKeys(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to load signing keys: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", km.Algorithm(),
			"previous", len(km.PreviousSigningKeys()),
			"grace_period", rotation.GracePeriod,
		)
		return km, rotation, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}
		rotation.Keys = km

		logger.Info("generated ephemeral signing key", "algorithm", km.Algorithm())
		logger.Warn("ephemeral key mode: tokens issued before this start no longer verify")
		return km, rotation, nil
	}
}
