package authsdk

import (
	"context"
	"net/http"

	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// GetJWKS retrieves the published signing keys.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// GetDiscovery retrieves the OpenID provider metadata.
func (c *SDKClient) GetDiscovery(ctx context.Context) (*DiscoveryDocument, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/openid-configuration", nil, nil)
	if err != nil {
		return nil, err
	}

	var doc DiscoveryDocument
	if err := decodeJSON(resp, &doc, http.StatusOK); err != nil {
		return nil, err
	}
	return &doc, nil
}

// NewVerifier fetches the JWKS and returns a verifier for access tokens
// issued by issuer. Keys rotated in later are not picked up.
func (c *SDKClient) NewVerifier(ctx context.Context, issuer string, audience ...string) (jwtx.Verifier, error) {
	set, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := jwtx.NewStaticKeys(jwtx.JWKS(*set))
	if err != nil {
		return nil, err
	}
	return jwtx.NewVerifier(keys, jwtx.VerifyOptions{
		Issuer:   issuer,
		Audience: audience,
		Type:     jwtx.TypeAccessToken,
	}), nil
}
