package rest

import (
	"net/http"

	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/profile"
)

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profiles.Get(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[profile.UpdateRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	p, err := h.deps.Profiles.Update(r.Context(), identity.UserIDFromContext(r.Context()), *req)
	if err != nil {
		writeServiceError(w, err, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
