package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// writeOAuth2Error maps a service error onto the token endpoint error
// catalogue. Refinements of invalid_grant are checked before the base.
func writeOAuth2Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedGrantType):
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidClient):
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrUnauthorizedClient):
		authsdk.ErrUnauthorizedClient.WriteError(w)
	case errors.Is(err, service.ErrAccountLockedOut):
		authsdk.ErrAccountLockedOut.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		authsdk.ErrInvalidRefreshToken.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		authsdk.ErrTemporarilyUnavailable.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("oauth2 request failed", slogx.Err(err))
		authsdk.ErrServerError.WriteError(w)
	}
}

// writeAPIError maps admin service errors to the admin API error body.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr authsdk.APIError
	switch {
	case errors.Is(err, service.ErrNotFound):
		apiErr = authsdk.APIError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "The resource does not exist."}
	case errors.Is(err, service.ErrAlreadyExists):
		apiErr = authsdk.APIError{StatusCode: http.StatusConflict, Code: "already_exists", Message: "The resource already exists."}
	case errors.Is(err, service.ErrInvalidInput):
		apiErr = authsdk.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_input", Message: err.Error()}
	case errors.Is(err, service.ErrUpstreamUnavailable):
		apiErr = authsdk.APIError{StatusCode: http.StatusServiceUnavailable, Code: "temporarily_unavailable", Message: "The server is temporarily unavailable."}
	default:
		slogx.FromContext(r.Context()).Error("admin request failed", slogx.Err(err), "path", r.URL.Path)
		apiErr = authsdk.APIError{StatusCode: http.StatusInternalServerError, Code: "server_error", Message: "The server encountered an unexpected error."}
	}
	httpx.WriteJSON(w, apiErr.StatusCode, apiErr)
}

func writeBadJSON(w http.ResponseWriter, err error) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.APIError{
		StatusCode: http.StatusBadRequest,
		Code:       "invalid_json",
		Message:    err.Error(),
	})
}

// parseOAuthForm checks the content type, parses the body and rejects
// repeated parameters (RFC 6749 section 3.2).
func parseOAuthForm(r *http.Request) *authsdk.OAuth2Error {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		return authsdk.ErrInvalidContentType
	}
	if err := r.ParseForm(); err != nil {
		return authsdk.ErrInvalidRequest
	}
	for _, values := range r.PostForm {
		if len(values) > 1 {
			return authsdk.ErrInvalidRequest
		}
	}
	return nil
}

// clientCredentials reads client_secret_basic or client_secret_post
// credentials. Basic credentials are form-urlencoded (RFC 6749 section
// 2.3.1). Both forms may be sent only when they agree.
func clientCredentials(r *http.Request) (id, secret string, err *authsdk.OAuth2Error) {
	formID := r.PostForm.Get("client_id")
	formSecret := r.PostForm.Get("client_secret")

	basicID, basicSecret, ok := r.BasicAuth()
	if !ok {
		if r.Header.Get("Authorization") != "" {
			return "", "", authsdk.ErrInvalidClient
		}
		return formID, formSecret, nil
	}

	id, uerr := url.QueryUnescape(basicID)
	if uerr != nil {
		return "", "", authsdk.ErrInvalidClient
	}
	secret, uerr = url.QueryUnescape(basicSecret)
	if uerr != nil {
		return "", "", authsdk.ErrInvalidClient
	}

	if (formID != "" && formID != id) || (formSecret != "" && formSecret != secret) {
		return "", "", authsdk.ErrInvalidRequest
	}
	return id, secret, nil
}
