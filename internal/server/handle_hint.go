package server

import (
	"errors"
	"net/http"

	"github.com/timetrailhk/geohunt/internal/engine"
)

// HintResponse carries the active location's hint. An empty hint means the
// location has none; the client decides how to present that.
type HintResponse struct {
	Hint string `json:"hint"`
}

func handleHint(sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		sess, err := sessions.Load(r.Context(), token)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		hint, err := sess.Hint()
		if errors.Is(err, engine.ErrNoActiveLocation) {
			writeError(w, http.StatusConflict, "no active location")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, HintResponse{Hint: hint})
	}
}
