package rest

import (
	"net/http"

	"github.com/alakara/harvest/internal/identity"
)

type chatMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Chat.History(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sess.Messages)
}

func (h *Handler) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	// Text is checked by the service so blank input gets its own message.
	req, err := decodeAndValidate[chatMessageRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	msg, err := h.deps.Chat.Post(r.Context(), identity.UserIDFromContext(r.Context()), req.Text)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
