// Package geohunt defines the core domain types and geodesy helpers.
// It has zero external dependencies — everything here is pure Go.
package geohunt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Location is one geofenced stop on a trail. The set of locations is fixed
// for the lifetime of a session.
type Location struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Story    string  `json:"story"`
	Question string  `json:"question"`
	Hint     string  `json:"hint"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Range    float64 `json:"range"`
	Answer   string  `json:"answer"`
}

// Trail is an ordered, finite set of locations with unique ids.
type Trail struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	City        string     `json:"city"`
	Description string     `json:"description"`
	Locations   []Location `json:"locations"`
}

// PositionSample is one device fix. Accuracy is in meters and is used only
// for display quality, never for trigger logic.
type PositionSample struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// earthRadius is the spherical Earth radius in meters used by Distance.
const earthRadius = 6371000

// Distance returns the great-circle distance in meters between two
// coordinates, using the haversine formula on a spherical Earth.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

// DistanceTo returns the distance in meters from the sample to loc.
func (s PositionSample) DistanceTo(loc Location) float64 {
	return Distance(s.Lat, s.Lng, loc.Lat, loc.Lng)
}

// NearestUnvisited scans locations in order and returns the unvisited one
// closest to the sample, with its distance. Ties go to the earliest location
// in trail order (the scan uses strict less-than). ok is false when every
// location has been visited.
func NearestUnvisited(locations []Location, visited map[string]bool, s PositionSample) (nearest Location, distance float64, ok bool) {
	distance = math.Inf(1)
	for _, loc := range locations {
		if visited[loc.ID] {
			continue
		}
		if d := s.DistanceTo(loc); d < distance {
			distance = d
			nearest = loc
			ok = true
		}
	}
	return nearest, distance, ok
}

// NormalizeAnswer trims surrounding whitespace from a raw answer. Comparison
// itself is case-folded, see AnswerMatches.
func NormalizeAnswer(raw string) string {
	return strings.TrimSpace(raw)
}

// AnswerMatches reports whether a submitted answer matches the expected one,
// comparing trimmed text case-insensitively.
func AnswerMatches(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}

// AccuracyGrade classifies a fix accuracy for display.
type AccuracyGrade string

const (
	AccuracyGood AccuracyGrade = "good"
	AccuracyFair AccuracyGrade = "fair"
	AccuracyPoor AccuracyGrade = "poor"
)

// Grade returns the display classification of the sample's accuracy.
func (s PositionSample) Grade() AccuracyGrade {
	switch {
	case s.Accuracy <= 20:
		return AccuracyGood
	case s.Accuracy <= 50:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// ErrInvalidTrail marks a trail document that failed validation. Trail load
// failures are fatal to session start and are distinct from GPS errors.
var ErrInvalidTrail = errors.New("invalid trail")

// Validate checks the trail's structural invariants: at least one location,
// unique ids, positive trigger ranges, coordinates in range, and an answer
// on every location.
func (t Trail) Validate() error {
	if len(t.Locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidTrail)
	}
	seen := make(map[string]bool, len(t.Locations))
	for i, loc := range t.Locations {
		if loc.ID == "" {
			return fmt.Errorf("%w: location %d has no id", ErrInvalidTrail, i)
		}
		if seen[loc.ID] {
			return fmt.Errorf("%w: duplicate location id %q", ErrInvalidTrail, loc.ID)
		}
		seen[loc.ID] = true
		if loc.Range <= 0 {
			return fmt.Errorf("%w: location %q has non-positive range", ErrInvalidTrail, loc.ID)
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return fmt.Errorf("%w: location %q has out-of-range coordinates", ErrInvalidTrail, loc.ID)
		}
		if strings.TrimSpace(loc.Answer) == "" {
			return fmt.Errorf("%w: location %q has no answer", ErrInvalidTrail, loc.ID)
		}
	}
	return nil
}

// Location returns the location with the given id, if present.
func (t Trail) Location(id string) (Location, bool) {
	for _, loc := range t.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// ParseTrail decodes and validates a trail document (a JSON object carrying
// a "locations" array). Malformed documents are reported as ErrInvalidTrail.
func ParseTrail(data []byte) (Trail, error) {
	var t Trail
	if err := json.Unmarshal(data, &t); err != nil {
		return Trail{}, fmt.Errorf("%w: %v", ErrInvalidTrail, err)
	}
	if err := t.Validate(); err != nil {
		return Trail{}, err
	}
	return t, nil
}
