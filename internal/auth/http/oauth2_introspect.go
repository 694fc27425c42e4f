package http

import (
	"net/http"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
)

// IntrospectHandler serves POST /connect/introspect following RFC 7662.
// Callers authenticate like they do at the token endpoint. Any token that
// is not active yields the bare {"active":false} body.
type IntrospectHandler struct {
	Introspection *service.IntrospectionService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether a token is active and returns its metadata (RFC 7662).
//	@Description	Only confidential clients may introspect. Refresh tokens are only reported to the client they were issued to.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token metadata or active=false"
//	@Failure		400				{object}	authsdk.OAuth2Error				"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error				"error, error_description"
//	@Failure		503				{object}	authsdk.OAuth2Error				"error, error_description"
//	@Router			/connect/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if oerr := parseOAuthForm(r); oerr != nil {
		oerr.WriteError(w)
		return
	}
	clientID, secret, oerr := clientCredentials(r)
	if oerr != nil {
		oerr.WriteError(w)
		return
	}

	info, err := h.Introspection.Introspect(r.Context(), clientID, secret,
		r.PostForm.Get("token"), r.PostForm.Get("token_type_hint"))
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}
	if !info.Active {
		writeInactiveResponse(w)
		return
	}

	resp := authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     domain.FormatScope(info.Scopes),
		ClientID:  info.ClientID,
		Username:  info.Username,
		TokenType: info.TokenType,
		Sub:       info.Subject,
		Aud:       info.Audience,
		Iss:       info.Issuer,
		Jti:       info.ID,
		AMR:       info.AMR,
		Exp:       unixOrZero(info.ExpiresAt),
		Iat:       unixOrZero(info.IssuedAt),
		Nbf:       unixOrZero(info.NotBefore),
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writeInactiveResponse returns the minimal RFC 7662 response. Nothing
// about why the token is inactive is revealed.
func writeInactiveResponse(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"active":false}`))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
