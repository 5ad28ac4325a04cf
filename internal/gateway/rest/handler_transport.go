package rest

import (
	"net/http"

	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/transport"
)

const transportNotFound = "Transport not found or unauthorized"

func (h *Handler) handleListTransport(w http.ResponseWriter, r *http.Request) {
	page, err := decodePage(r, h.defaultLimit)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := h.deps.Transport.ListAvailable(r.Context(), page)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListMyTransport(w http.ResponseWriter, r *http.Request) {
	page, err := decodePage(r, h.defaultLimit)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := h.deps.Transport.ListMine(r.Context(), identity.UserIDFromContext(r.Context()), page)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCreateTransport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[transport.CreateRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	l, err := h.deps.Transport.Create(r.Context(), identity.UserIDFromContext(r.Context()), *req)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) handleDeleteTransport(w http.ResponseWriter, r *http.Request) {
	_, err := h.deps.Transport.Delete(r.Context(), r.PathValue("id"), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, transportNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transport deleted successfully"})
}
