package http

import (
	"errors"
	"net/http"

	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
)

// UserInfoHandler serves the OpenID Connect userinfo endpoint. The access
// token has already been verified by the Authn middleware.
type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Get user information
//	@Description	Returns claims about the authenticated user. Requires the openid scope on a token issued by the password or refresh_token grant.
//	@Description	name, email and role are included when the profile, email and roles scopes were granted.
//	@Tags			OAuth2
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserInfoResponse
//	@Failure		401	{object}	authsdk.OAuth2Error	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.OAuth2Error	"Insufficient scope"
//	@Router			/connect/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		errInvalidToken.WriteError(w)
		return
	}

	info, err := h.UserService.UserInfo(r.Context(), claims)
	switch {
	case errors.Is(err, service.ErrNotFound):
		// The user was deleted after the token was issued.
		errInvalidToken.WriteError(w)
		return
	case err != nil:
		writeOAuth2Error(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Sub:   info.Subject,
		Name:  info.Name,
		Email: info.Email,
		Role:  info.Roles,
	})
}

var errInvalidToken = authsdk.NewOAuth2Error(http.StatusUnauthorized,
	authsdk.ErrorCodeInvalidToken, "The access token is invalid.")
