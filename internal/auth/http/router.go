package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/metrics"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"

	_ "github.com/aixasz/AixaszSampleProject/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Scopes guarding the resource and admin endpoints.
const (
	ScopeAPI   = "api"
	ScopeAdmin = "admin"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store              store.Store
	TokenService       *service.TokenService
	Introspection      *service.IntrospectionService
	UserService        *service.UserService
	ClientService      *service.ClientService
	KeyRotationService *service.KeyRotationService

	// TokenLimit and AdminLimit default to the httpx profiles.
	TokenLimit httpx.RateLimitConfig
	AdminLimit httpx.RateLimitConfig

	// Extra readiness checks, e.g. the lockout store.
	ReadyChecks map[string]Check

	adminLimit httpx.Middleware
}

// NewRouter wires the access-token verifier for the protected endpoints.
// verifier must only accept at+jwt tokens for this issuer and audience.
func NewRouter(
	keys *jwtx.KeyManager,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		TokenLimit:   httpx.TokenLimit,
		AdminLimit:   httpx.AdminLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.adminLimit = httpx.RateLimit(r.AdminLimit, httpx.SubjectKey)

	r.registerOAuth2()
	r.registerWellKnown()
	r.registerAPI()
	r.registerClients()
	r.registerUsers()
	r.registerKeyRotation()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Aixasz Authorization Server API
//	@version		1.0
//	@description	Minimal OAuth2 authorization server issuing JWT access tokens and identity tokens
//	@description	for the client_credentials, password and refresh_token grants.
//	@description
//	@description				Tokens can be verified with the keys published at /.well-known/jwks.json.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	// Token requests are bucketed per source IP and client_id together so
	// one noisy client cannot starve others behind the same NAT.
	tokenLimit := httpx.RateLimit(r.TokenLimit,
		httpx.ComposeKeys("|", httpx.ClientIP, httpx.ClientIDKey))

	r.Mux.Handle("POST /connect/token",
		httpx.Chain(&TokenHandler{TokenService: r.TokenService}, tokenLimit))
	r.Mux.Handle("POST /connect/introspect",
		httpx.Chain(&IntrospectHandler{Introspection: r.Introspection}, tokenLimit))
	r.Mux.Handle("POST /connect/revoke",
		httpx.Chain(&RevokeHandler{Introspection: r.Introspection}, tokenLimit))

	r.Mux.Handle("GET /connect/userinfo",
		httpx.Chain(&UserInfoHandler{UserService: r.UserService},
			httpx.Authn(r.verifier),
			httpx.RequireAnyScope("openid"),
			httpx.RequireAMR(jwtx.AMRPassword),
		),
	)
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET /.well-known/jwks.json", JWKSHandler(r.keys))
	r.Mux.Handle("GET /.well-known/openid-configuration", DiscoveryHandler(r.issuer, r.keys))
}

func (r *Router) registerAPI() {
	r.Mux.Handle("GET /api/version",
		httpx.Chain(VersionHandler(),
			httpx.Authn(r.verifier),
			httpx.RequireAnyScope(ScopeAPI),
		),
	)
	r.Mux.Handle("GET /api/user/version",
		httpx.Chain(UserVersionHandler(),
			httpx.Authn(r.verifier),
			httpx.RequireAMR(jwtx.AMRPassword),
		),
	)
}

// admin wraps h with bearer authentication, the admin scope and a per
// caller rate limit shared by every admin endpoint.
func (r *Router) admin(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h,
		httpx.Authn(r.verifier),
		httpx.RequireAnyScope(ScopeAdmin),
		r.adminLimit,
	)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	r.Mux.Handle("POST /admin/clients", r.admin(h.HandleCreate))
	r.Mux.Handle("GET /admin/clients", r.admin(h.HandleList))
	r.Mux.Handle("GET /admin/clients/{id}", r.admin(h.HandleGet))
	r.Mux.Handle("POST /admin/clients/{id}/secret", r.admin(h.HandleRotateSecret))
	r.Mux.Handle("DELETE /admin/clients/{id}", r.admin(h.HandleDelete))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("POST /admin/users", r.admin(h.HandleCreate))
	r.Mux.Handle("GET /admin/users", r.admin(h.HandleList))
	r.Mux.Handle("GET /admin/users/{id}", r.admin(h.HandleGet))
	r.Mux.Handle("PATCH /admin/users/{id}", r.admin(h.HandleUpdate))
	r.Mux.Handle("POST /admin/users/{id}/password", r.admin(h.HandleSetPassword))
	r.Mux.Handle("DELETE /admin/users/{id}", r.admin(h.HandleDelete))
}

func (r *Router) registerKeyRotation() {
	// Rotation works in both key modes: ephemeral rings live in memory
	// only, persistent rings are sealed into the database.
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	r.Mux.Handle("GET /admin/keys", r.admin(h.HandleList))
	r.Mux.Handle("POST /admin/keys/rotate", r.admin(h.HandleRotate))
	r.Mux.Handle("POST /admin/keys/{kid}/retire", r.admin(h.HandleRetire))
}

func (r *Router) registerSystem() {
	checks := map[string]Check{
		"database": r.store.Ping,
		"signer": func(context.Context) error {
			if !r.keys.IsReady() {
				return errors.New("no signing key loaded")
			}
			return nil
		},
	}
	for name, c := range r.ReadyChecks {
		checks[name] = c
	}

	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, checks))
	r.Mux.Handle("GET /metrics", metrics.Handler())
}
