package server

import (
	"errors"
	"net/http"

	"github.com/timetrailhk/geohunt/internal/engine"
)

// AnswerRequest is the request body for POST /api/game/answer. The text is
// taken as typed; trimming and case folding happen during validation.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// AnswerResponse reports the outcome of one submission.
type AnswerResponse struct {
	Correct      bool          `json:"correct"`
	Location     *LocationView `json:"location,omitempty"`
	Visited      int           `json:"visited"`
	Total        int           `json:"total"`
	GameComplete bool          `json:"gameComplete,omitempty"`
	Message      string        `json:"message,omitempty"`
}

func handleAnswer(sessions *SessionStore, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
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

		correct, events, err := sess.SubmitAnswer(req.Answer)
		switch {
		case errors.Is(err, engine.ErrEmptyAnswer):
			writeError(w, http.StatusBadRequest, "answer is required")
			return
		case errors.Is(err, engine.ErrNoActiveLocation):
			writeError(w, http.StatusConflict, "no active location to answer")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := sessions.Save(r.Context(), token, sess); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		broker.PublishAll(token, toSSEEvents(events))

		resp := AnswerResponse{
			Correct: correct,
			Visited: sess.VisitedCount(),
			Total:   sess.Total(),
		}
		for _, e := range events {
			switch ev := e.(type) {
			case engine.LocationCompletedEvent:
				resp.Location = &LocationView{ID: ev.Location.ID, Name: ev.Location.Name}
			case engine.SessionCompletedEvent:
				resp.GameComplete = true
				resp.Message = ev.Message
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
