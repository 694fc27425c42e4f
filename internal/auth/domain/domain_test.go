package domain_test

import (
	"testing"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantScopes(t *testing.T) {
	t.Parallel()

	allowed := []string{"api", "read"}

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"empty request gets everything", nil, []string{"api", "read"}},
		{"subset", []string{"read"}, []string{"read"}},
		{"unknown dropped", []string{"api", "admin"}, []string{"api"}},
		{"all unknown", []string{"admin"}, []string{}},
		{"duplicates collapsed", []string{"api", "api"}, []string{"api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.GrantScopes(tt.requested, allowed))
		})
	}
}

func TestGrantScopesDoesNotAlias(t *testing.T) {
	allowed := []string{"api"}
	got := domain.GrantScopes(nil, allowed)
	got[0] = "mutated"
	assert.Equal(t, "api", allowed[0])
}

func TestClaimsSetDestinations(t *testing.T) {
	cs := domain.NewClaimsSet("user-1", "sample-api", domain.AMRPassword, []string{"openid", "roles"})
	cs.Add(domain.ClaimName, "devrock")
	cs.Add(domain.ClaimEmail, "devrock@example.com")
	cs.Add(domain.ClaimRole, "admin")
	cs.Add(domain.ClaimRole, "ops")
	cs.Add("tenant", "t1")
	cs.Add("empty", "")

	access := cs.For(domain.DestAccess)
	identity := cs.For(domain.DestIdentity)

	names := func(cl []domain.Claim) []string {
		out := make([]string, 0, len(cl))
		for _, c := range cl {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"name", "email", "role", "tenant"}, names(access))
	assert.Equal(t, []string{"name", "email", "role"}, names(identity))
	assert.Equal(t, []string{"admin", "ops"}, cs.Get(domain.ClaimRole))
	assert.Nil(t, cs.Get("empty"))
	assert.True(t, cs.HasScope("roles"))
	assert.False(t, cs.HasScope("offline_access"))
}

func TestClaimsSetAddTo(t *testing.T) {
	cs := domain.NewClaimsSet("svc", "svc", domain.AMRClient, nil)
	cs.AddTo(domain.ClaimName, domain.DestAccess, "Reports")
	cs.Add(domain.ClaimName, "Nightly")

	assert.Empty(t, cs.For(domain.DestIdentity))
	access := cs.For(domain.DestAccess)
	require.Len(t, access, 1)
	assert.Equal(t, []string{"Reports", "Nightly"}, access[0].Values)
}

func TestDestinationsDefaultToAccess(t *testing.T) {
	assert.Equal(t, domain.DestAccess, domain.DestinationsFor("scope"))
	assert.Equal(t, domain.DestAccess|domain.DestIdentity, domain.DestinationsFor("email"))
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	rt := domain.RefreshToken{ExpiresAt: now.Add(time.Minute)}
	assert.True(t, rt.Usable(now))
	assert.False(t, rt.Usable(now.Add(2*time.Minute)))

	rt.Revoked = true
	assert.False(t, rt.Usable(now))
}

func TestClientPredicates(t *testing.T) {
	c := domain.Client{GrantTypes: []string{domain.GrantPassword}}
	assert.False(t, c.IsConfidential())
	assert.True(t, c.AllowsGrant(domain.GrantPassword))
	assert.False(t, c.AllowsGrant(domain.GrantClientCredentials))
}

func TestSigningKeyExpiry(t *testing.T) {
	now := time.Now()
	k := domain.SigningKey{}
	assert.False(t, k.IsExpired(now))

	exp := now.Add(-time.Second)
	k.ExpiresAt = &exp
	require.True(t, k.IsExpired(now))
}
