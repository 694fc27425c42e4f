package service

import (
	"context"
	"testing"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeUser() NewUser {
	return NewUser{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, true, false, 16),
		Roles:    []string{"staff"},
	}
}

func TestUserService(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	req := fakeUser()
	u, err := f.users.CreateUser(ctx, req)
	require.NoError(t, err)
	require.Equal(t, domain.NormalizeUsername(req.Username), u.Username)
	require.NotEqual(t, req.Password, u.PasswordHash)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.users.CreateUser(ctx, NewUser{Username: u.Username, Password: "another-password"})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("validation", func(t *testing.T) {
		bad := []NewUser{
			{Username: "x", Password: "long-enough"},
			{Username: "valid-name", Password: "short"},
			{Username: "valid-name", Email: "not an email", Password: "long-enough"},
			{Username: "valid-name", Password: "long-enough", Roles: []string{"Bad Role!"}},
		}
		for _, b := range bad {
			_, err := f.users.CreateUser(ctx, b)
			require.ErrorIs(t, err, ErrInvalidInput, "%+v", b)
		}
	})

	t.Run("get and list", func(t *testing.T) {
		got, err := f.users.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Username, got.Username)

		_, err = f.users.GetUser(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)

		all, err := f.users.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		email := gofakeit.Email()
		updated, err := f.users.UpdateUser(ctx, u.ID, domain.NewPatch(domain.UserFields{Email: email}, "email"))
		require.NoError(t, err)
		require.Equal(t, email, updated.Email)
		require.Equal(t, u.Username, updated.Username)
		require.Equal(t, []string{"staff"}, updated.Roles)

		stored, err := f.users.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, email, stored.Email)
		require.Equal(t, []string{"staff"}, stored.Roles)
	})

	t.Run("empty and invalid patches", func(t *testing.T) {
		_, err := f.users.UpdateUser(ctx, u.ID, domain.NewPatch(domain.UserFields{}))
		require.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.users.UpdateUser(ctx, u.ID, domain.NewPatch(domain.UserFields{Username: "!"}, "username"))
		require.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.users.UpdateUser(ctx, "missing", domain.NewPatch(domain.UserFields{Email: "a@b.co"}, "email"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		victim, err := f.users.CreateUser(ctx, fakeUser())
		require.NoError(t, err)
		require.NoError(t, f.users.DeleteUser(ctx, victim.ID))
		require.ErrorIs(t, f.users.DeleteUser(ctx, victim.ID), ErrNotFound)
	})
}

func TestCreateUserTrimsEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.CreateUser(ctx, NewUser{Username: "padded-email", Email: "  p@example.com ", Password: "long-enough"})
	require.NoError(t, err)
	require.Equal(t, "p@example.com", u.Email)

	got, err := f.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "p@example.com", got.Email)
}

func TestSetPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	issued := f.passwordGrant(t, "offline_access")
	u := f.user(t)

	// Lock the account first.
	for i := 0; i < 5; i++ {
		_, _ = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantPassword, Username: testUsername, Password: "wrong-password"})
	}
	locked, err := f.lock.Locked(ctx, testUsername)
	require.NoError(t, err)
	require.True(t, locked)

	require.ErrorIs(t, f.users.SetPassword(ctx, u.ID, "short"), ErrInvalidInput)
	require.NoError(t, f.users.SetPassword(ctx, u.ID, "a-brand-new-password"))

	locked, err = f.lock.Locked(ctx, testUsername)
	require.NoError(t, err)
	require.False(t, locked)

	_, err = f.tokens.Exchange(ctx, refreshRequest(issued.RefreshToken))
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantPassword, Username: testUsername, Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantPassword, Username: testUsername, Password: "a-brand-new-password"})
	require.NoError(t, err)
}

func TestUserInfo(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.user(t)

	cases := []struct {
		scope string
		want  UserInfo
	}{
		{"openid", UserInfo{Subject: u.ID}},
		{"openid profile", UserInfo{Subject: u.ID, Name: testUsername}},
		{"openid email roles", UserInfo{Subject: u.ID, Email: "devrock@example.com", Roles: []string{"admin"}}},
	}
	for _, tc := range cases {
		t.Run(tc.scope, func(t *testing.T) {
			claims := jwtx.Claims{Scope: tc.scope}
			claims.Subject = u.ID
			got, err := f.users.UserInfo(context.Background(), claims)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := f.users.UserInfo(context.Background(), jwtx.Claims{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientService(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	c, secret, err := f.clients.CreateClient(ctx, NewClient{
		DisplayName:  gofakeit.Company(),
		Confidential: true,
		GrantTypes:   []string{domain.GrantClientCredentials, domain.GrantClientCredentials},
		Scopes:       []string{"api", "reports:read"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.NotEmpty(t, secret)
	require.Equal(t, []string{domain.GrantClientCredentials}, c.GrantTypes)

	_, err = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: c.ID, ClientSecret: secret})
	require.NoError(t, err)

	t.Run("rotate secret", func(t *testing.T) {
		next, err := f.clients.RotateSecret(ctx, c.ID)
		require.NoError(t, err)
		require.NotEqual(t, secret, next)

		_, err = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: c.ID, ClientSecret: secret})
		require.ErrorIs(t, err, ErrInvalidClient)
		_, err = f.tokens.Exchange(ctx, domain.TokenRequest{GrantType: domain.GrantClientCredentials, ClientID: c.ID, ClientSecret: next})
		require.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		bad := []NewClient{
			{ID: "has spaces", GrantTypes: []string{domain.GrantPassword}},
			{ID: "no-grants"},
			{ID: "auth-code", GrantTypes: []string{"authorization_code"}},
			{ID: "public-cc", GrantTypes: []string{domain.GrantClientCredentials}},
			{ID: "bad-scope", GrantTypes: []string{domain.GrantPassword}, Scopes: []string{`a"b`}},
		}
		for _, b := range bad {
			_, _, err := f.clients.CreateClient(ctx, b)
			require.ErrorIs(t, err, ErrInvalidInput, b.ID)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, _, err := f.clients.CreateClient(ctx, NewClient{ID: ccClientID, Confidential: true, GrantTypes: []string{domain.GrantClientCredentials}})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("public clients have no secret to rotate", func(t *testing.T) {
		pub, secret, err := f.clients.CreateClient(ctx, NewClient{ID: "spa", GrantTypes: []string{domain.GrantPassword}})
		require.NoError(t, err)
		require.Empty(t, secret)
		_, err = f.clients.RotateSecret(ctx, pub.ID)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("list get delete", func(t *testing.T) {
		all, err := f.clients.ListClients(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(all), 3)

		got, err := f.clients.GetClient(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, c.DisplayName, got.DisplayName)

		require.NoError(t, f.clients.DeleteClient(ctx, c.ID))
		_, err = f.clients.GetClient(ctx, c.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, f.clients.DeleteClient(ctx, c.ID), ErrNotFound)
	})
}

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := &BootstrapService{Store: f.store}

	ok, err := svc.IsBootstrapped(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	res, err := svc.Apply(context.Background(), testSeed())
	require.NoError(t, err)
	require.Equal(t, SeedResult{ClientsSkipped: 2, UsersSkipped: 1}, res)

	_, err = svc.Apply(context.Background(), Seed{Clients: []NewClient{{GrantTypes: []string{domain.GrantPassword}}}})
	require.ErrorIs(t, err, ErrInvalidInput)
}
