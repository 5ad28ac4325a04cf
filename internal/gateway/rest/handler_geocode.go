package rest

import "net/http"

func (h *Handler) handleGeocode(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Geocoder.Lookup(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
