package server

import (
	"errors"
	"net/http"

	"github.com/timetrailhk/geohunt/internal/engine"
)

// StartSessionRequest is the request body for POST /api/sessions.
type StartSessionRequest struct {
	TrailID string `json:"trailId"`
}

// TrailInfo describes the trail a session plays, without answers.
type TrailInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Description    string `json:"description"`
	TotalLocations int    `json:"totalLocations"`
}

// StartSessionResponse carries the bearer token for all later game calls.
type StartSessionResponse struct {
	Token string    `json:"token"`
	Trail TrailInfo `json:"trail"`
}

func handleStartSession(sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TrailID == "" {
			writeError(w, http.StatusBadRequest, "trailId is required")
			return
		}

		token, sess, err := sessions.Create(r.Context(), req.TrailID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "trail not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		trail := sess.Trail()
		writeJSON(w, http.StatusOK, StartSessionResponse{
			Token: token,
			Trail: TrailInfo{
				ID:             trail.ID,
				Name:           trail.Name,
				City:           trail.City,
				Description:    trail.Description,
				TotalLocations: sess.Total(),
			},
		})
	}
}

// ProgressInfo is the visited/total ratio the client renders as a bar.
type ProgressInfo struct {
	Visited    int      `json:"visited"`
	Total      int      `json:"total"`
	VisitedIDs []string `json:"visitedIds"`
}

// PositionInfo is the last known fix with its display grade.
type PositionInfo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	GPS GPSView `json:"gps"`
}

// GameStateResponse is the full session view for GET /api/game/state.
type GameStateResponse struct {
	Phase        engine.Phase  `json:"phase"`
	Trail        TrailInfo     `json:"trail"`
	Progress     ProgressInfo  `json:"progress"`
	Active       *LocationView `json:"active,omitempty"`
	LastPosition *PositionInfo `json:"lastPosition,omitempty"`
}

func handleGameState(sessions *SessionStore) http.HandlerFunc {
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

		trail := sess.Trail()
		resp := GameStateResponse{
			Phase: sess.Phase(),
			Trail: TrailInfo{
				ID:             trail.ID,
				Name:           trail.Name,
				City:           trail.City,
				Description:    trail.Description,
				TotalLocations: sess.Total(),
			},
			Progress: ProgressInfo{
				Visited:    sess.VisitedCount(),
				Total:      sess.Total(),
				VisitedIDs: sess.Visited(),
			},
		}
		if active, ok := sess.Active(); ok {
			resp.Active = locationView(active)
		}
		if pos, ok := sess.LastPosition(); ok {
			resp.LastPosition = &PositionInfo{Lat: pos.Lat, Lng: pos.Lng, GPS: *gpsView(pos)}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAbandonSession(sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		if err := sessions.Delete(r.Context(), token); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
