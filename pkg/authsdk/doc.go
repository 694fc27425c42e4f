/*
Package authsdk is a client for the token server.

# SDKClient vs Session

SDKClient covers the endpoints that authenticate with client credentials
or not at all: the token, introspection and revocation endpoints, health
checks, discovery and the JWKS. Session wraps the tokens from a grant and
adds the bearer-protected calls, refreshing the access token on expiry.

	client := authsdk.NewSDKClient("http://localhost:8080")

	// Machine to machine. No refresh token is issued.
	svc, err := client.AuthenticateWithClientCredentials(ctx,
		"aixasz-client", secret, []string{"api"})
	v, err := svc.Version(ctx)

	// End user. offline_access yields a refresh token, openid an id_token.
	user, err := client.AuthenticateWithPassword(ctx,
		"sample-api", "", "devrock", "P@ssw0rd!",
		[]string{"openid", "email", "roles", "offline_access"})
	info, err := user.UserInfo(ctx)

# Errors

Non-2xx responses from the OAuth endpoints come back as *OAuth2Error and
match the package sentinels by code:

	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// bad password, locked account, or spent refresh token
	}

Refresh tokens are single use. Redeeming one twice fails with
invalid_grant, so a Session must not be copied between processes.

# Verifying tokens

Resource servers can verify access tokens locally against the published
keys:

	verifier, err := client.NewVerifier(ctx, "http://localhost:8080/", "resource_server")
	claims, err := verifier.Verify(accessToken)
*/
package authsdk
