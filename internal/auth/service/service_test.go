package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/audit"
	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/lockout"
	"github.com/aixasz/AixaszSampleProject/internal/auth/store/drivers/sqlite"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://localhost:8080/"
	testAudience = "resource_server"

	ccClientID = "aixasz-client"
	ccSecret   = "f128d22c-412d-469e-94c0-e1eb366e7f1b"
	pwClientID = "sample-api"
	pwSecret   = "c44f6ec2-ce1e-4920-a4f9-3e77dd0793c9"

	testUsername = "devrock"
	testPassword = "P@ssw0rd!"
)

func testSeed() Seed {
	return Seed{
		Clients: []NewClient{
			{
				ID:           ccClientID,
				DisplayName:  "Aixasz Sample OpenIddict ClientCredentials",
				Confidential: true,
				Secret:       ccSecret,
				GrantTypes:   []string{domain.GrantClientCredentials},
				Scopes:       []string{"api"},
			},
			{
				ID:           pwClientID,
				DisplayName:  "Sample OpenIddict Client API",
				Confidential: true,
				Secret:       pwSecret,
				GrantTypes:   []string{domain.GrantPassword, domain.GrantRefreshToken},
				Scopes:       domain.UserScopeCatalog,
			},
		},
		Users: []NewUser{
			{Username: testUsername, Email: "devrock@example.com", Password: testPassword, Roles: []string{"admin"}},
		},
	}
}

// recorder is an in-memory audit.Publisher.
type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Publish(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store   *sqlite.Store
	keys    *jwtx.KeyManager
	lock    *lockout.Memory
	audit   *recorder
	tokens  *TokenService
	intro   *IntrospectionService
	users   *UserService
	clients *ClientService
	access  *jwtx.TokenVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, MaxPrevious: 2})
	require.NoError(t, err)

	lock, err := lockout.NewMemory(lockout.DefaultPolicy)
	require.NoError(t, err)

	rec := &recorder{}
	creds := &StoreCredentials{Store: st}
	access := jwtx.NewVerifier(keys, jwtx.VerifyOptions{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
		Type:     jwtx.TypeAccessToken,
	})

	f := &fixture{
		store: st,
		keys:  keys,
		lock:  lock,
		audit: rec,
		tokens: &TokenService{
			Credentials: creds,
			Store:       st,
			Issuer: &TokenIssuer{
				Keys:        keys,
				Issuer:      testIssuer,
				Audience:    testAudience,
				AccessTTL:   time.Hour,
				IdentityTTL: 20 * time.Minute,
			},
			Lockout: lock,
			Audit:   rec,
		},
		intro: &IntrospectionService{
			Credentials: creds,
			Store:       st,
			Verifier:    access,
			Audit:       rec,
		},
		users:   &UserService{Store: st, Lockout: lock},
		clients: &ClientService{Store: st},
		access:  access,
	}

	_, err = (&BootstrapService{Store: st}).Apply(context.Background(), testSeed())
	require.NoError(t, err)
	return f
}

func (f *fixture) passwordGrant(t *testing.T, scope string) domain.TokenResponse {
	t.Helper()
	resp, err := f.tokens.Exchange(context.Background(), domain.TokenRequest{
		GrantType:    domain.GrantPassword,
		ClientID:     pwClientID,
		ClientSecret: pwSecret,
		Username:     testUsername,
		Password:     testPassword,
		Scopes:       domain.ParseScope(scope),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) user(t *testing.T) domain.User {
	t.Helper()
	u, err := f.store.Users().GetUserByUsername(context.Background(), testUsername)
	require.NoError(t, err)
	return u
}
