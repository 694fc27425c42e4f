package http

import (
	"io"
	"net/http"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// UsersHandler handles resource owner administration.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleCreate handles POST /admin/users
//
//	@Summary		Create User
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateUserRequest	true	"User"
//	@Success		201		{object}	authsdk.UserDetails
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		409		{object}	authsdk.APIError	"Username taken"
//	@Router			/admin/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, maxAdminBody, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	u, err := h.UserService.CreateUser(r.Context(), service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("user created",
		"user_id", u.ID, "by", httpx.SubjectFrom(r.Context()))
	httpx.WriteJSON(w, http.StatusCreated, userDetails(u))
}

// HandleList handles GET /admin/users
//
//	@Summary		List Users
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListUsersResponse
//	@Router			/admin/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	resp := authsdk.ListUsersResponse{Users: make([]authsdk.UserDetails, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, userDetails(u))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /admin/users/{id}
//
//	@Summary		Get User
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.UserDetails
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userDetails(u))
}

// HandleUpdate handles PATCH /admin/users/{id}
//
//	@Summary		Update User
//	@Description	JSON merge patch. Only the fields present in the body change.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserDetails
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		404		{object}	authsdk.APIError
//	@Failure		409		{object}	authsdk.APIError
//	@Router			/admin/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		writeBadJSON(w, err)
		return
	}
	patch, err := domain.DecodePatch[domain.UserFields](body)
	if err != nil {
		writeBadJSON(w, err)
		return
	}

	u, err := h.UserService.UpdateUser(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userDetails(u))
}

// HandleSetPassword handles POST /admin/users/{id}/password
//
//	@Summary		Set User Password
//	@Description	Replaces the password, revokes all of the user's refresh tokens and clears any lockout.
//	@Tags			Users
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string						true	"User ID"
//	@Param			request	body	authsdk.SetPasswordRequest	true	"New password"
//	@Success		204
//	@Failure		400	{object}	authsdk.APIError
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/users/{id}/password [post].
func (h *UsersHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetPasswordRequest
	if err := httpx.DecodeJSON(w, r, maxAdminBody, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	id := r.PathValue("id")
	if err := h.UserService.SetPassword(r.Context(), id, req.Password); err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("user password reset",
		"user_id", id, "by", httpx.SubjectFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /admin/users/{id}
//
//	@Summary		Delete User
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.UserService.DeleteUser(r.Context(), id); err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("user deleted",
		"user_id", id, "by", httpx.SubjectFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func userDetails(u domain.User) authsdk.UserDetails {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return authsdk.UserDetails{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
