package engine

import (
	"fmt"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// Snapshot is the serializable form of a session, stored between requests.
// The trail itself is not embedded; it is reloaded from the catalog and
// rejoined on restore.
type Snapshot struct {
	TrailID      string                  `json:"trailId"`
	Visited      []string                `json:"visited"`
	ActiveID     string                  `json:"activeId,omitempty"`
	LastPosition *geohunt.PositionSample `json:"lastPosition,omitempty"`
	Completed    bool                    `json:"completed"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		TrailID:   s.trail.ID,
		Visited:   s.Visited(),
		Completed: s.completeSent,
	}
	if s.active != nil {
		snap.ActiveID = s.active.ID
	}
	if s.lastPos != nil {
		pos := *s.lastPos
		snap.LastPosition = &pos
	}
	return snap
}

// Restore rebuilds a session from a snapshot and the trail it was playing.
// Unknown visited or active ids mean the trail changed underneath a live
// session and are rejected.
func Restore(trail geohunt.Trail, snap Snapshot) (*Session, error) {
	if trail.ID != snap.TrailID {
		return nil, fmt.Errorf("snapshot is for trail %q, got %q", snap.TrailID, trail.ID)
	}

	s := New(trail)
	for _, id := range snap.Visited {
		if _, ok := trail.Location(id); !ok {
			return nil, fmt.Errorf("visited id %q not on trail %q", id, trail.ID)
		}
		if !s.visited[id] {
			s.visited[id] = true
			s.visitedOrder = append(s.visitedOrder, id)
		}
	}
	if snap.ActiveID != "" {
		loc, ok := trail.Location(snap.ActiveID)
		if !ok {
			return nil, fmt.Errorf("active id %q not on trail %q", snap.ActiveID, trail.ID)
		}
		s.active = &loc
	}
	if snap.LastPosition != nil {
		pos := *snap.LastPosition
		s.lastPos = &pos
	}
	s.completeSent = snap.Completed
	return s, nil
}
