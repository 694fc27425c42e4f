package http

import (
	"net/http"

	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
)

// RevokeHandler serves POST /connect/revoke following RFC 7009. Only
// refresh tokens can be revoked; access tokens expire naturally. Unknown
// tokens still get 200 OK so the endpoint cannot be used for scanning.
type RevokeHandler struct {
	Introspection *service.IntrospectionService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a refresh token issued to the calling client (RFC 7009).
//	@Description	Returns 200 OK even for invalid or unknown tokens.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"The token to revoke"
//	@Param			token_type_hint	formData	string	false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				"Token revoked (or was already invalid)"
//	@Failure		400				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Failure		503				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Router			/connect/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if oerr := parseOAuthForm(r); oerr != nil {
		oerr.WriteError(w)
		return
	}
	clientID, secret, oerr := clientCredentials(r)
	if oerr != nil {
		oerr.WriteError(w)
		return
	}

	err := h.Introspection.Revoke(r.Context(), clientID, secret,
		r.PostForm.Get("token"), r.PostForm.Get("token_type_hint"))
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}
