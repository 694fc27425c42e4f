package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
	GrantRefreshToken      = "refresh_token"
)

// ClientCredentialsGrant authenticates the client itself. No refresh token
// or id_token is ever returned.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{"grant_type": {GrantClientCredentials}}
	setScope(data, scopes)
	return c.requestToken(ctx, clientID, clientSecret, data)
}

// PasswordGrant exchanges end-user credentials for tokens. Request
// offline_access to receive a refresh token and openid for an id_token.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {GrantPassword},
		"username":   {username},
		"password":   {password},
	}
	setScope(data, scopes)
	return c.requestToken(ctx, clientID, clientSecret, data)
}

// RefreshGrant redeems a refresh token. The token is single use; the
// response carries its successor.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {GrantRefreshToken},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, clientID, clientSecret, data)
}

// Introspect asks the server whether a token is active (RFC 7662).
func (c *SDKClient) Introspect(
	ctx context.Context,
	clientID, clientSecret, token string,
) (*IntrospectionResponse, error) {
	resp, err := c.postForm(ctx, "/connect/introspect", clientID, clientSecret, url.Values{"token": {token}})
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeToken revokes a refresh token (RFC 7009). Unknown tokens still
// succeed.
func (c *SDKClient) RevokeToken(ctx context.Context, clientID, clientSecret, token string) error {
	resp, err := c.postForm(ctx, "/connect/revoke", clientID, clientSecret, url.Values{
		"token":           {token},
		"token_type_hint": {GrantRefreshToken},
	})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusOK)
}

func (c *SDKClient) requestToken(
	ctx context.Context,
	clientID, clientSecret string,
	data url.Values,
) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/connect/token", clientID, clientSecret, data)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// postForm sends client credentials in the body (client_secret_post).
func (c *SDKClient) postForm(
	ctx context.Context,
	path, clientID, clientSecret string,
	data url.Values,
) (*http.Response, error) {
	if clientID != "" {
		data.Set("client_id", clientID)
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}

	return c.doRequest(ctx, http.MethodPost, path, strings.NewReader(data.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

func setScope(data url.Values, scopes []string) {
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}
}
