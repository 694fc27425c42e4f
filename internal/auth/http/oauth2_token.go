package http

import (
	"net/http"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
)

// TokenHandler serves POST /connect/token.
// Accepts application/x-www-form-urlencoded per RFC 6749.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues tokens for the client_credentials, password and refresh_token grants.
//	@Description	Clients authenticate with HTTP Basic or with client_id/client_secret form fields.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(client_credentials, password, refresh_token)
//	@Param			client_id		formData	string					false	"Client identifier"
//	@Param			client_secret	formData	string					false	"Client secret (client_secret_post)"
//	@Param			username		formData	string					false	"Resource owner username (password grant)"
//	@Param			password		formData	string					false	"Resource owner password (password grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, token_type, expires_in, scope, id_token, refresh_token"
//	@Failure		400				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		500				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		503				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/connect/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if oerr := parseOAuthForm(r); oerr != nil {
		oerr.WriteError(w)
		return
	}

	clientID, clientSecret, oerr := clientCredentials(r)
	if oerr != nil {
		oerr.WriteError(w)
		return
	}

	form := r.PostForm
	req := domain.TokenRequest{
		GrantType:    form.Get("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     form.Get("username"),
		Password:     form.Get("password"),
		RefreshToken: form.Get("refresh_token"),
		Scopes:       httpx.ParseSpaceDelimitedFields(form.Get("scope")),
	}

	resp, err := h.TokenService.Exchange(r.Context(), req)
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    int(resp.ExpiresIn.Seconds()),
		Scope:        domain.FormatScope(resp.Scopes),
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	})
}
