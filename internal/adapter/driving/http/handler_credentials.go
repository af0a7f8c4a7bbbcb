package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// ListCredentials returns all configured portals. Passwords are never returned.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.List(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "failed to list credentials")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateCredential validates, normalizes and stores a new credential.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	portalType, err := model.ParsePortalType(req.PortalType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	cred := model.Credential{
		PortalType: portalType,
		PortalName: req.PortalName,
		URL:        req.URL,
		Username:   req.Username,
		Password:   req.Password,
		IsActive:   active,
	}
	h.saveCredential(w, r, cred, http.StatusCreated)
}

// UpdateCredential merges the fields present in the body into the stored
// credential. Omitted fields, including the password, keep their stored value.
func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := credentialID(w, r)
	if !ok {
		return
	}

	var req UpdateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.credentials.FindByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to load credential", "id", id)
		return
	}

	if req.PortalType != nil {
		portalType, err := model.ParsePortalType(*req.PortalType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cred.PortalType = portalType
	}
	if req.PortalName != nil {
		cred.PortalName = *req.PortalName
	}
	if req.URL != nil {
		cred.URL = *req.URL
	}
	if req.Username != nil {
		cred.Username = *req.Username
	}
	if req.Password != nil {
		cred.Password = *req.Password
	}
	if req.IsActive != nil {
		cred.IsActive = *req.IsActive
	}

	h.saveCredential(w, r, cred, http.StatusOK)
}

func (h *Handler) saveCredential(w http.ResponseWriter, r *http.Request, cred model.Credential, status int) {
	cred = cred.Normalize()
	if err := cred.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.credentials.Save(r.Context(), cred)
	if err != nil {
		h.writeStoreError(w, err, "failed to save credential", "portal", cred.PortalName)
		return
	}

	writeJSON(w, status, toCredentialResponse(saved))
}

// writeStoreError maps credential store errors to status codes and logs the rest.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, driven.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, driven.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "credential store unavailable")
	default:
		h.logger.Error(msg, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func credentialID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return 0, false
	}
	return id, true
}

// DeleteCredential removes a credential by ID.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := credentialID(w, r)
	if !ok {
		return
	}

	if err := h.credentials.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete credential", "id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
