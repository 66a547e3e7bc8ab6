// Package engine implements the geofence-triggered progression engine: it
// consumes position samples, selects the nearest unvisited location, fires
// enter events, validates answers, and detects trail completion. Operations
// are pure state transitions that return events; rendering and transport
// live elsewhere.
package engine

import (
	"errors"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// Phase is the session's position in the play lifecycle.
type Phase string

const (
	// PhaseAwaitingFix: no position sample received yet.
	PhaseAwaitingFix Phase = "awaiting_fix"
	// PhaseGuiding: tracking position, no open question.
	PhaseGuiding Phase = "guiding"
	// PhaseActive: a location is triggered and awaiting a correct answer.
	PhaseActive Phase = "location_active"
	// PhaseCompleted: every location has been visited.
	PhaseCompleted Phase = "completed"
)

// GuidanceRange is the distance beyond which guidance reports no nearby
// location instead of a concrete distance.
const GuidanceRange = 1000

var (
	// ErrNoActiveLocation is returned by SubmitAnswer and Hint when no
	// location is currently triggered.
	ErrNoActiveLocation = errors.New("no active location")
	// ErrEmptyAnswer is returned by SubmitAnswer when the submitted text is
	// blank after trimming.
	ErrEmptyAnswer = errors.New("empty answer")
)

// Session is the mutable state of one play-through. It is not safe for
// concurrent use; callers serialize access (one session belongs to one
// device stream).
type Session struct {
	trail   geohunt.Trail
	visited map[string]bool
	// visitedOrder preserves insertion order for snapshots and state views.
	visitedOrder []string
	active       *geohunt.Location
	lastPos      *geohunt.PositionSample
	completeSent bool
}

// New creates an empty session over a validated trail.
func New(trail geohunt.Trail) *Session {
	return &Session{
		trail:   trail,
		visited: make(map[string]bool, len(trail.Locations)),
	}
}

// Trail returns the trail this session plays.
func (s *Session) Trail() geohunt.Trail { return s.trail }

// Phase derives the lifecycle phase from session state.
func (s *Session) Phase() Phase {
	switch {
	case s.completeSent:
		return PhaseCompleted
	case s.active != nil:
		return PhaseActive
	case s.lastPos != nil:
		return PhaseGuiding
	default:
		return PhaseAwaitingFix
	}
}

// Active returns the currently triggered location, if any.
func (s *Session) Active() (geohunt.Location, bool) {
	if s.active == nil {
		return geohunt.Location{}, false
	}
	return *s.active, true
}

// LastPosition returns the most recent sample, if any.
func (s *Session) LastPosition() (geohunt.PositionSample, bool) {
	if s.lastPos == nil {
		return geohunt.PositionSample{}, false
	}
	return *s.lastPos, true
}

// Visited returns the visited location ids in the order they were completed.
func (s *Session) Visited() []string {
	out := make([]string, len(s.visitedOrder))
	copy(out, s.visitedOrder)
	return out
}

// VisitedCount returns how many locations have been completed.
func (s *Session) VisitedCount() int { return len(s.visitedOrder) }

// Total returns the number of locations on the trail.
func (s *Session) Total() int { return len(s.trail.Locations) }

// Update ingests one position sample. It always emits a guidance event for
// the nearest unvisited location; when the sample falls inside that
// location's trigger radius and it is not already the active one, it also
// emits an activation event. An open unanswered question is silently
// replaced when a different geofence is entered. Update never marks a
// location visited.
func (s *Session) Update(sample geohunt.PositionSample) []Event {
	s.lastPos = &sample

	nearest, dist, ok := geohunt.NearestUnvisited(s.trail.Locations, s.visited, sample)
	if !ok {
		// Everything visited: guidance with no target, no re-activation.
		return []Event{GuidanceEvent{Sample: sample}}
	}

	events := []Event{guidanceFor(sample, nearest, dist)}

	if dist <= nearest.Range && (s.active == nil || s.active.ID != nearest.ID) {
		loc := nearest
		s.active = &loc
		events = append(events, ActivatedEvent{Location: loc})
	}
	return events
}

// SubmitAnswer validates raw text against the active location's answer.
// It returns ErrNoActiveLocation when nothing is triggered and
// ErrEmptyAnswer when the trimmed text is blank. A mismatch leaves all
// state untouched. A match marks the active location visited (idempotent)
// and clears the active location; the first time the visited set covers the
// trail it also emits a session-complete event.
func (s *Session) SubmitAnswer(raw string) (correct bool, events []Event, err error) {
	if s.active == nil {
		return false, nil, ErrNoActiveLocation
	}
	if geohunt.NormalizeAnswer(raw) == "" {
		return false, nil, ErrEmptyAnswer
	}

	if !geohunt.AnswerMatches(raw, s.active.Answer) {
		return false, []Event{WrongAnswerEvent{Location: *s.active}}, nil
	}

	loc := *s.active
	if !s.visited[loc.ID] {
		s.visited[loc.ID] = true
		s.visitedOrder = append(s.visitedOrder, loc.ID)
	}
	s.active = nil

	events = []Event{LocationCompletedEvent{
		Location: loc,
		Visited:  len(s.visitedOrder),
		Total:    len(s.trail.Locations),
	}}

	if len(s.visitedOrder) == len(s.trail.Locations) && !s.completeSent {
		s.completeSent = true
		events = append(events, SessionCompletedEvent{Message: CompletionMessage})
	}
	return true, events, nil
}

// Hint returns the active location's hint text. The hint may be empty,
// meaning no hint is available for that location.
func (s *Session) Hint() (string, error) {
	if s.active == nil {
		return "", ErrNoActiveLocation
	}
	return s.active.Hint, nil
}

// CompletionMessage is attached to the session-complete event.
const CompletionMessage = "恭喜！您已完成所有地點的探索！請前往終點領取您的電子紀念證書。"

func guidanceFor(sample geohunt.PositionSample, nearest geohunt.Location, dist float64) GuidanceEvent {
	g := GuidanceEvent{Sample: sample, Distance: dist}
	if dist < GuidanceRange {
		g.Nearest = &nearest
		g.Within = true
	}
	return g
}
