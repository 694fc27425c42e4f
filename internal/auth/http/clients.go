package http

import (
	"net/http"
	"time"

	"github.com/aixasz/AixaszSampleProject/internal/auth/domain"
	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
	"github.com/aixasz/AixaszSampleProject/pkg/httpx"
	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

const maxAdminBody = 64 << 10

// ClientsHandler handles all client management endpoints.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /admin/clients
//
//	@Summary		Create OAuth2 Client
//	@Description	Registers a client. Confidential clients get a generated secret, returned only in this response.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateClientRequest		true	"Client creation request"
//	@Success		201		{object}	authsdk.ClientSecretResponse	"client_id and client_secret (if confidential)"
//	@Failure		400		{object}	authsdk.APIError
//	@Failure		401		{object}	authsdk.APIError
//	@Failure		403		{object}	authsdk.APIError
//	@Failure		409		{object}	authsdk.APIError
//	@Router			/admin/clients [post].
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateClientRequest
	if err := httpx.DecodeJSON(w, r, maxAdminBody, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	client, secret, err := h.ClientService.CreateClient(r.Context(), service.NewClient{
		ID:           req.ClientID,
		DisplayName:  req.DisplayName,
		Confidential: req.Confidential,
		GrantTypes:   req.GrantTypes,
		Scopes:       req.Scopes,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("client created",
		"client_id", client.ID, "by", httpx.SubjectFrom(r.Context()))
	httpx.WriteJSON(w, http.StatusCreated, authsdk.ClientSecretResponse{
		ClientID:     client.ID,
		ClientSecret: secret,
	})
}

// HandleList handles GET /admin/clients
//
//	@Summary		List OAuth2 Clients
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListClientsResponse
//	@Failure		401	{object}	authsdk.APIError
//	@Failure		403	{object}	authsdk.APIError
//	@Router			/admin/clients [get].
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	resp := authsdk.ListClientsResponse{Clients: make([]authsdk.ClientInfo, 0, len(clients))}
	for _, c := range clients {
		resp.Clients = append(resp.Clients, clientInfo(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /admin/clients/{id}
//
//	@Summary		Get OAuth2 Client
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	authsdk.ClientInfo
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/clients/{id} [get].
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.ClientService.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(c))
}

// HandleRotateSecret handles POST /admin/clients/{id}/secret
//
//	@Summary		Rotate Client Secret
//	@Description	Replaces the secret of a confidential client. The old secret stops working immediately.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	authsdk.ClientSecretResponse
//	@Failure		400	{object}	authsdk.APIError	"Public clients have no secret"
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/clients/{id}/secret [post].
func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	secret, err := h.ClientService.RotateSecret(r.Context(), id)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("client secret rotated",
		"client_id", id, "by", httpx.SubjectFrom(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, authsdk.ClientSecretResponse{ClientID: id, ClientSecret: secret})
}

// HandleDelete handles DELETE /admin/clients/{id}
//
//	@Summary		Delete OAuth2 Client
//	@Description	Deletes the client and every refresh token issued to it.
//	@Tags			Clients
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Client ID"
//	@Success		204
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/clients/{id} [delete].
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ClientService.DeleteClient(r.Context(), id); err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("client deleted",
		"client_id", id, "by", httpx.SubjectFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	return authsdk.ClientInfo{
		ClientID:     c.ID,
		DisplayName:  c.DisplayName,
		Confidential: c.IsConfidential(),
		GrantTypes:   c.GrantTypes,
		Scopes:       c.Scopes,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	}
}
