package http

import (
	"net/http"
	"strings"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWTs. Previous keys stay published until their grace period ends.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.JWKS()))
	}
}

// DiscoveryHandler publishes OpenID Provider Metadata derived from the
// issuer URL.
//
//	@Summary		OpenID Provider Configuration
//	@Description	Returns the OpenID Connect discovery document.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get].
func DiscoveryHandler(issuer string, keys *jwtx.KeyManager) http.HandlerFunc {
	base := strings.TrimRight(issuer, "/")
	doc := authsdk.DiscoveryDocument{
		Issuer:                base,
		TokenEndpoint:         base + "/connect/token",
		IntrospectionEndpoint: base + "/connect/introspect",
		RevocationEndpoint:    base + "/connect/revoke",
		UserinfoEndpoint:      base + "/connect/userinfo",
		JWKSURI:               base + "/.well-known/jwks.json",
		GrantTypesSupported: []string{
			domain.GrantClientCredentials,
			domain.GrantPassword,
			domain.GrantRefreshToken,
		},
		ScopesSupported:                  domain.UserScopeCatalog,
		ClaimsSupported:                  []string{"sub", "name", "email", "role", "amr", "client_id", "scope"},
		TokenEndpointAuthMethods:         []string{"client_secret_basic", "client_secret_post"},
		IDTokenSigningAlgValuesSupported: []string{keys.Algorithm()},
		ResponseTypesSupported:           []string{"token"},
		SubjectTypesSupported:            []string{"public"},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
