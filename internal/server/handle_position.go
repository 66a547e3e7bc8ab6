package server

import (
	"errors"
	"net/http"

	"github.com/timetrailhk/geohunt/internal/engine"
	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// PositionRequest is one device fix posted by the client.
type PositionRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

func (req PositionRequest) validate() string {
	if req.Lat < -90 || req.Lat > 90 {
		return "lat must be between -90 and 90"
	}
	if req.Lng < -180 || req.Lng > 180 {
		return "lng must be between -180 and 180"
	}
	if req.Accuracy < 0 {
		return "accuracy must be non-negative"
	}
	return ""
}

// PositionResponse reports what the sample changed.
type PositionResponse struct {
	Phase     engine.Phase  `json:"phase"`
	Guidance  *GuidanceView `json:"guidance,omitempty"`
	Activated *LocationView `json:"activated,omitempty"`
	GPS       *GPSView      `json:"gps"`
}

func handlePosition(sessions *SessionStore, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req PositionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
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

		sample := geohunt.PositionSample{Lat: req.Lat, Lng: req.Lng, Accuracy: req.Accuracy}
		events := sess.Update(sample)

		if err := sessions.Save(r.Context(), token, sess); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		broker.PublishAll(token, toSSEEvents(events))

		resp := PositionResponse{
			Phase: sess.Phase(),
			GPS:   gpsView(sample),
		}
		for _, e := range events {
			switch ev := e.(type) {
			case engine.GuidanceEvent:
				resp.Guidance = guidanceView(ev)
			case engine.ActivatedEvent:
				resp.Activated = locationView(ev.Location)
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
