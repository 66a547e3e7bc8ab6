package engine

import "github.com/timetrailhk/geohunt/internal/geohunt"

// Event is something the engine wants the renderer to know about. The
// engine never touches presentation; a transport layer converts events to
// whatever the client consumes.
type Event interface {
	Kind() string
}

// GuidanceEvent is emitted on every position update. Nearest is nil when no
// unvisited location lies within GuidanceRange (or when everything is
// visited); the renderer shows a ">1000 m" style sentinel in that case.
type GuidanceEvent struct {
	Sample   geohunt.PositionSample
	Nearest  *geohunt.Location
	Distance float64
	Within   bool
}

func (GuidanceEvent) Kind() string { return "guidance" }

// ActivatedEvent carries the full location record of a newly triggered
// geofence.
type ActivatedEvent struct {
	Location geohunt.Location
}

func (ActivatedEvent) Kind() string { return "location_activated" }

// WrongAnswerEvent is emitted on a mismatched answer; the renderer is
// expected to offer the hint.
type WrongAnswerEvent struct {
	Location geohunt.Location
}

func (WrongAnswerEvent) Kind() string { return "wrong_answer" }

// LocationCompletedEvent is emitted when an answer is accepted.
type LocationCompletedEvent struct {
	Location geohunt.Location
	Visited  int
	Total    int
}

func (LocationCompletedEvent) Kind() string { return "location_completed" }

// SessionCompletedEvent fires exactly once, when the last location is
// answered.
type SessionCompletedEvent struct {
	Message string
}

func (SessionCompletedEvent) Kind() string { return "session_completed" }
