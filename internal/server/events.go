package server

import (
	"math"

	"github.com/timetrailhk/geohunt/internal/engine"
	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// LocationView is the client-facing shape of a location. The expected
// answer never leaves the server.
type LocationView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Story    string `json:"story,omitempty"`
	Question string `json:"question,omitempty"`
}

func locationView(loc geohunt.Location) *LocationView {
	return &LocationView{
		ID:       loc.ID,
		Name:     loc.Name,
		Title:    loc.Title,
		Story:    loc.Story,
		Question: loc.Question,
	}
}

// GuidanceView tells the renderer where to head next. NearestID is empty
// when no unvisited location lies within the guidance range; the client
// shows ">1000" in that case.
type GuidanceView struct {
	NearestID      string `json:"nearestId,omitempty"`
	NearestName    string `json:"nearestName,omitempty"`
	DistanceMeters int    `json:"distanceMeters,omitempty"`
	WithinRange    bool   `json:"withinRange"`
}

func guidanceView(e engine.GuidanceEvent) *GuidanceView {
	g := &GuidanceView{WithinRange: e.Within}
	if e.Nearest != nil {
		g.NearestID = e.Nearest.ID
		g.NearestName = e.Nearest.Name
		g.DistanceMeters = int(math.Round(e.Distance))
	}
	return g
}

// GPSView is the display classification of a fix.
type GPSView struct {
	AccuracyMeters int                   `json:"accuracyMeters"`
	Grade          geohunt.AccuracyGrade `json:"grade"`
}

func gpsView(s geohunt.PositionSample) *GPSView {
	return &GPSView{
		AccuracyMeters: int(math.Round(s.Accuracy)),
		Grade:          s.Grade(),
	}
}

// SSEEvent is the payload published to session subscribers.
type SSEEvent struct {
	Type     string        `json:"type"`
	Location *LocationView `json:"location,omitempty"`
	Guidance *GuidanceView `json:"guidance,omitempty"`
	Visited  int           `json:"visited,omitempty"`
	Total    int           `json:"total,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// toSSEEvents converts engine events into wire events, preserving order.
func toSSEEvents(events []engine.Event) []SSEEvent {
	out := make([]SSEEvent, 0, len(events))
	for _, e := range events {
		switch ev := e.(type) {
		case engine.GuidanceEvent:
			out = append(out, SSEEvent{
				Type:     ev.Kind(),
				Guidance: guidanceView(ev),
			})
		case engine.ActivatedEvent:
			out = append(out, SSEEvent{
				Type:     ev.Kind(),
				Location: locationView(ev.Location),
			})
		case engine.WrongAnswerEvent:
			out = append(out, SSEEvent{
				Type:     ev.Kind(),
				Location: &LocationView{ID: ev.Location.ID, Name: ev.Location.Name},
			})
		case engine.LocationCompletedEvent:
			out = append(out, SSEEvent{
				Type:     ev.Kind(),
				Location: &LocationView{ID: ev.Location.ID, Name: ev.Location.Name},
				Visited:  ev.Visited,
				Total:    ev.Total,
			})
		case engine.SessionCompletedEvent:
			out = append(out, SSEEvent{
				Type:    ev.Kind(),
				Message: ev.Message,
			})
		}
	}
	return out
}
