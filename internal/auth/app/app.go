package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	httpapi "github.com/aixasz/AixaszSampleProject/internal/auth/http"
	"github.com/aixasz/AixaszSampleProject/internal/auth/lockout"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store/drivers/sqlite"
	"github.com/aixasz/AixaszSampleProject/pkg/cryptox"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         *sqlite.Store
	keyManager *jwtx.KeyManager
	lockout    lockout.Counter
	audit      audit.Publisher

	// closers release external connections in reverse order on shutdown.
	closers []func() error

	tokenService        *service.TokenService
	introspection       *service.IntrospectionService
	userService         *service.UserService
	clientService       *service.ClientService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.Level,
		Format:  cfg.Format,
	})
}

// New creates a new Application instance with all dependencies initialized.
// On error everything opened so far is closed again.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (_ *Application, err error) {
	app := &Application{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := cryptox.LoadPepper(cfg.Database.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	db, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.closers = append(app.closers, db.Close)
	logger.Info("database migrations applied", "file", cfg.Database.File)

	if err := app.initLockout(ctx); err != nil {
		return nil, err
	}
	if err := app.initAudit(); err != nil {
		return nil, err
	}

	app.keyManager, app.keyRotationService, err = InitAuthKeys(ctx, cfg.Keys, db, app.audit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}

	if err := app.seed(ctx); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()
	return app, nil
}

// OpenStore opens the SQLite database and brings its schema up to date.
func OpenStore(cfg DatabaseConfig) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initLockout(ctx context.Context) error {
	policy := lockout.Policy{
		MaxFailures: app.cfg.Lockout.MaxFailures,
		Window:      app.cfg.Lockout.Window,
	}

	if app.cfg.Lockout.RedisURL == "" {
		m, err := lockout.NewMemory(policy)
		if err != nil {
			return fmt.Errorf("failed to initialize lockout counter: %w", err)
		}
		app.lockout = m
		app.logger.Info("lockout counters kept in memory")
		return nil
	}

	r, err := lockout.NewRedis(ctx, app.cfg.Lockout.RedisURL, policy)
	if err != nil {
		return fmt.Errorf("failed to connect lockout redis: %w", err)
	}
	app.lockout = r
	app.closers = append(app.closers, r.Close)
	app.logger.Info("lockout counters kept in redis")
	return nil
}

func (app *Application) initAudit() error {
	if app.cfg.Audit.NATSURL == "" {
		app.audit = audit.Log{}
		return nil
	}

	n, err := audit.NewNATS(audit.Config{
		URL:           app.cfg.Audit.NATSURL,
		SubjectPrefix: app.cfg.Audit.SubjectPrefix,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect audit nats: %w", err)
	}
	app.audit = n
	app.closers = append(app.closers, n.Close)
	app.logger.Info("audit events published to nats", "subject_prefix", app.cfg.Audit.SubjectPrefix)
	return nil
}

// seed applies seed.file when set. Without a file the built-in sample data
// is applied to an empty database only.
func (app *Application) seed(ctx context.Context) error {
	bootstrap := &service.BootstrapService{Store: app.db}

	if app.cfg.Seed.File == "" {
		done, err := bootstrap.IsBootstrapped(ctx)
		if err != nil {
			return fmt.Errorf("failed to inspect database: %w", err)
		}
		if done {
			return nil
		}
	}

	seed, err := LoadSeed(app.cfg.Seed.File)
	if err != nil {
		return err
	}
	res, err := bootstrap.Apply(slogx.WithContext(ctx, app.logger), seed)
	if err != nil {
		return fmt.Errorf("failed to apply seed: %w", err)
	}
	app.logger.Info("seed applied",
		"clients_created", res.ClientsCreated,
		"clients_skipped", res.ClientsSkipped,
		"users_created", res.UsersCreated,
		"users_skipped", res.UsersSkipped,
	)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	creds := &service.StoreCredentials{Store: app.db, Timeout: app.cfg.Auth.StoreTimeout}

	app.tokenService = &service.TokenService{
		Credentials: creds,
		Store:       app.db,
		Issuer: &service.TokenIssuer{
			Keys:        app.keyManager,
			Issuer:      app.cfg.Auth.Issuer,
			Audience:    app.cfg.Auth.Audience,
			AccessTTL:   app.cfg.Auth.AccessTokenTTL,
			IdentityTTL: app.cfg.Auth.IdentityTokenTTL,
		},
		Lockout:      app.lockout,
		Audit:        app.audit,
		RefreshTTL:   app.cfg.Auth.RefreshTokenTTL,
		StoreTimeout: app.cfg.Auth.StoreTimeout,
	}

	app.introspection = &service.IntrospectionService{
		Credentials:  creds,
		Store:        app.db,
		Verifier:     app.verifier(),
		Audit:        app.audit,
		StoreTimeout: app.cfg.Auth.StoreTimeout,
	}

	app.userService = &service.UserService{Store: app.db, Lockout: app.lockout}
	app.clientService = &service.ClientService{Store: app.db}

	// Ephemeral rings have nothing stored to clean up beyond refresh tokens.
	var keys *service.KeyRotationService
	if app.cfg.Keys.StorageMode == StoragePersistent {
		keys = app.keyRotationService
	}
	app.housekeepingService = service.NewHousekeepingService(app.db, keys, app.logger, app.cfg.Housekeeping.Interval)
}

func (app *Application) verifier() jwtx.Verifier {
	return jwtx.NewVerifier(app.keyManager, jwtx.VerifyOptions{
		Issuer:   app.cfg.Auth.Issuer,
		Audience: []string{app.cfg.Auth.Audience},
		Type:     jwtx.TypeAccessToken,
	})
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.verifier(),
		app.cfg.Auth.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.Introspection = app.introspection
	router.UserService = app.userService
	router.ClientService = app.clientService
	router.KeyRotationService = app.keyRotationService

	rl := app.cfg.RateLimit
	router.TokenLimit = httpx.RateLimitConfig{Requests: rl.TokenRequests, Window: rl.TokenWindow, Burst: rl.TokenBurst}
	router.AdminLimit = httpx.RateLimitConfig{Requests: rl.AdminRequests, Window: rl.AdminWindow, Burst: rl.AdminBurst}

	if p, ok := app.lockout.(interface{ Ping(context.Context) error }); ok {
		router.ReadyChecks = map[string]httpapi.Check{"lockout": p.Ping}
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: app.cfg.Server.ReadHeaderTimeout,
	}
}

// Handler exposes the routed handler, e.g. for httptest servers.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves HTTP and runs housekeeping until ctx is cancelled or the
// listener fails, then shuts down gracefully and releases resources.
func (app *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		_ = app.Close()
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (app *Application) Serve(ctx context.Context, ln net.Listener) error {
	defer func() {
		if err := app.Close(); err != nil {
			app.logger.Error("error releasing resources", slogx.Err(err))
		}
	}()

	app.housekeepingService.Start()
	defer app.housekeepingService.Stop()

	app.logger.Info("auth service starting",
		"addr", ln.Addr().String(),
		"issuer", app.cfg.Auth.Issuer,
		"key_mode", app.cfg.Keys.StorageMode,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down auth service")
		return app.shutdownServer()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) shutdownServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slogx.Err(err))
		if cerr := app.server.Close(); cerr != nil {
			app.logger.Error("error closing server", slogx.Err(cerr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close releases the database and external connections. Safe to call twice.
func (app *Application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// RotateKeys rotates the persisted signing key ring outside a running
// server. The new key is picked up by servers on their next start.
func RotateKeys(ctx context.Context, cfg Config, logger *slog.Logger) (service.RotationResult, error) {
	if cfg.Keys.StorageMode != StoragePersistent {
		return service.RotationResult{}, errors.New("offline rotation needs keys.storage_mode=persistent; use POST /admin/keys/rotate for ephemeral rings")
	}

	db, err := OpenStore(cfg.Database)
	if err != nil {
		return service.RotationResult{}, err
	}
	defer func() { _ = db.Close() }()

	_, rotation, err := InitAuthKeys(ctx, cfg.Keys, db, audit.Log{}, logger)
	if err != nil {
		return service.RotationResult{}, err
	}
	return rotation.Rotate(slogx.WithContext(ctx, logger))
}

// Seed applies the seed file at path (or the built-in seed) to the database.
func Seed(ctx context.Context, cfg Config, path string, logger *slog.Logger) (service.SeedResult, error) {
	if err := cryptox.LoadPepper(cfg.Database.PepperFile); err != nil {
		return service.SeedResult{}, fmt.Errorf("failed to load pepper: %w", err)
	}
	seed, err := LoadSeed(path)
	if err != nil {
		return service.SeedResult{}, err
	}

	db, err := OpenStore(cfg.Database)
	if err != nil {
		return service.SeedResult{}, err
	}
	defer func() { _ = db.Close() }()

	return (&service.BootstrapService{Store: db}).Apply(slogx.WithContext(ctx, logger), seed)
}
