package server

import "net/http"

func handleListTrails(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := trails.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []TrailSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
