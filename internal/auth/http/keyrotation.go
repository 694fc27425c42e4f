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

// KeyRotationHandler handles signing key operations in both ephemeral and
// persistent key modes.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /admin/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Generates a new current signing key. The previous current key keeps verifying until its grace period ends.
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.RotateKeyResponse
//	@Failure		401	{object}	authsdk.APIError
//	@Failure		403	{object}	authsdk.APIError
//	@Failure		500	{object}	authsdk.APIError
//	@Router			/admin/keys/rotate [post].
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	res, err := h.KeyRotationService.Rotate(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("signing key rotated",
		"kid", res.Current.Kid, "dropped", res.Dropped, "by", httpx.SubjectFrom(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		Current: keyInfo(res.Current),
		Dropped: res.Dropped,
	})
}

// HandleList handles GET /admin/keys
//
//	@Summary		List signing keys
//	@Description	Lists the current key first, then previous keys, then retired keys still on record.
//	@Tags			Keys
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListKeysResponse
//	@Router			/admin/keys [get].
func (h *KeyRotationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyRotationService.ListKeys(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	resp := authsdk.ListKeysResponse{Keys: make([]authsdk.SigningKeyInfo, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, keyInfo(k))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRetire handles POST /admin/keys/{kid}/retire
//
//	@Summary		Retire a signing key
//	@Description	Removes a previous key from verification immediately. Tokens signed by it stop verifying. The current key cannot be retired.
//	@Tags			Keys
//	@Security		BearerAuth
//	@Param			kid	path	string	true	"Key ID"
//	@Success		204
//	@Failure		400	{object}	authsdk.APIError	"Key is current or already retired"
//	@Failure		404	{object}	authsdk.APIError
//	@Router			/admin/keys/{kid}/retire [post].
func (h *KeyRotationHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	kid := r.PathValue("kid")
	if err := h.KeyRotationService.RetireKey(r.Context(), kid); err != nil {
		writeAPIError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("signing key retired",
		"kid", kid, "by", httpx.SubjectFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func keyInfo(k domain.SigningKey) authsdk.SigningKeyInfo {
	info := authsdk.SigningKeyInfo{
		Kid:       k.Kid,
		Algorithm: k.Algorithm,
		State:     k.State,
	}
	if !k.CreatedAt.IsZero() {
		info.CreatedAt = k.CreatedAt.UTC().Format(time.RFC3339)
	}
	if k.RetiredAt != nil {
		s := k.RetiredAt.UTC().Format(time.RFC3339)
		info.RetiredAt = &s
	}
	return info
}
