package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

const ScopeAdmin = "admin"

// UserInfo calls the OpenID Connect userinfo endpoint.
func (s *Session) UserInfo(ctx context.Context) (*UserInfoResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/connect/userinfo", nil, "openid")
	if err != nil {
		return nil, err
	}

	var out UserInfoResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Version calls the client-credentials protected sample endpoint.
func (s *Session) Version(ctx context.Context) (*VersionResponse, error) {
	return s.version(ctx, "/api/version", "api")
}

// UserVersion calls the sample endpoint that requires an end user.
func (s *Session) UserVersion(ctx context.Context) (*VersionResponse, error) {
	return s.version(ctx, "/api/user/version")
}

func (s *Session) version(ctx context.Context, path string, scopes ...string) (*VersionResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, scopes...)
	if err != nil {
		return nil, err
	}

	var out VersionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Clients (scope: admin)
// ============================================================================

func (s *Session) CreateClient(ctx context.Context, req CreateClientRequest) (*ClientSecretResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/admin/clients", req, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ClientSecretResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/clients", nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ListClientsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/clients/"+url.PathEscape(clientID), nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ClientInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateClientSecret replaces the client's secret. The old secret stops
// working immediately.
func (s *Session) RotateClientSecret(ctx context.Context, clientID string) (*ClientSecretResponse, error) {
	path := "/admin/clients/" + url.PathEscape(clientID) + "/secret"
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ClientSecretResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) DeleteClient(ctx context.Context, clientID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/admin/clients/"+url.PathEscape(clientID), nil, ScopeAdmin)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// ============================================================================
// Users (scope: admin)
// ============================================================================

func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserDetails, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/admin/users", req, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out UserDetails
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/users", nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ListUsersResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetUser(ctx context.Context, id string) (*UserDetails, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out UserDetails
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser applies a merge patch. Role and email changes show up in the
// claims of the next refresh.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserDetails, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/admin/users/"+url.PathEscape(id), req, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out UserDetails
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) SetUserPassword(ctx context.Context, id, password string) error {
	path := "/admin/users/" + url.PathEscape(id) + "/password"
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, SetPasswordRequest{Password: password}, ScopeAdmin)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, ScopeAdmin)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// ============================================================================
// Signing keys (scope: admin)
// ============================================================================

func (s *Session) ListKeys(ctx context.Context) (*ListKeysResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/keys", nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out ListKeysResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateKey installs a new current signing key. The previous key keeps
// verifying until it is retired or pushed out of the ring.
func (s *Session) RotateKey(ctx context.Context) (*RotateKeyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/admin/keys/rotate", nil, ScopeAdmin)
	if err != nil {
		return nil, err
	}

	var out RotateKeyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) RetireKey(ctx context.Context, kid string) error {
	path := "/admin/keys/" + url.PathEscape(kid) + "/retire"
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, nil, ScopeAdmin)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
