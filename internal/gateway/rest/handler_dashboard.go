package rest

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Dashboard.Get(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
