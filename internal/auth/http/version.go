package http

import (
	"net/http"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
)

// APIVersion is reported by the protected sample endpoints.
const APIVersion = "v1"

// VersionHandler godoc
//
//	@Summary		API version
//	@Description	Sample resource protected by the api scope. Any client_credentials token carrying api is accepted.
//	@Tags			API
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.VersionResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Router			/api/version [get].
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.VersionResponse{Version: APIVersion})
	}
}

// UserVersionHandler godoc
//
//	@Summary		API version for users
//	@Description	Sample resource that only accepts tokens obtained with a user password (amr contains pwd).
//	@Tags			API
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.VersionResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Router			/api/user/version [get].
func UserVersionHandler() http.HandlerFunc {
	return VersionHandler()
}
