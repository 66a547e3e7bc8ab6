// Package feed turns a raw position source (a device geolocation watch, a
// websocket stream, a replay file) into the session's position feed: it
// settles session start on the first fix or a classified acquisition
// failure, then pushes every later sample to a single observer.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// AcquireTimeout bounds how long Start waits for the first fix.
const AcquireTimeout = 10 * time.Second

// ErrorKind classifies a position acquisition failure.
type ErrorKind string

const (
	PermissionDenied    ErrorKind = "permission_denied"
	PositionUnavailable ErrorKind = "position_unavailable"
	Timeout             ErrorKind = "timeout"
	Unknown             ErrorKind = "unknown"
)

// GeoError is a classified position feed failure. Before the first fix it is
// fatal to session start; after the first fix it only reaches the observer
// as a transient status.
type GeoError struct {
	Kind    ErrorKind
	Message string
}

func (e *GeoError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Source error codes, matching the W3C geolocation error codes that
// browser clients relay.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Classify maps a source error code to a GeoError. Unrecognized codes map
// to Unknown.
func Classify(code int, message string) *GeoError {
	kind := Unknown
	switch code {
	case CodePermissionDenied:
		kind = PermissionDenied
	case CodePositionUnavailable:
		kind = PositionUnavailable
	case CodeTimeout:
		kind = Timeout
	}
	return &GeoError{Kind: kind, Message: message}
}

// SourceError is a raw failure reported by a Source.
type SourceError struct {
	Code    int
	Message string
}

// Source is a continuous position watch. Watch begins delivery and returns
// a cancel function; sample and fail are invoked from the source's own
// dispatch context, one call at a time. A Source is not restartable.
type Source interface {
	Watch(sample func(geohunt.PositionSample), fail func(SourceError)) (stop func())
}

// Observer receives feed output after the first fix. Calls are synchronous
// with source dispatch: the latest sample always supersedes the previous
// one and nothing is buffered or reordered.
type Observer interface {
	// Sample delivers a position fix, including the first one.
	Sample(geohunt.PositionSample)
	// Status reports a transient post-fix source failure.
	Status(err *GeoError)
}

// Feed adapts a Source into the session's position feed.
type Feed struct {
	src Source
	obs Observer

	// Timeout is the first-fix acquisition window. Set before Start;
	// defaults to AcquireTimeout.
	Timeout time.Duration

	mu      sync.Mutex
	stop    func()
	started bool
	gotFix  bool
	stopped bool
}

// New creates a feed that will deliver to obs once started.
func New(src Source, obs Observer) *Feed {
	return &Feed{src: src, obs: obs, Timeout: AcquireTimeout}
}

// ErrAlreadyStarted is returned by Start on reuse; a fresh Feed is required
// for a retry.
var ErrAlreadyStarted = errors.New("feed already started")

// Start begins sampling and blocks until the first fix arrives, the source
// reports an error, the acquisition window elapses, or ctx is canceled.
// It settles exactly once: nil on the first fix, a *GeoError otherwise.
// After a successful Start, samples keep flowing to the observer until
// Stop; post-fix source errors are forwarded as statuses and never fail
// the feed.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.started = true
	f.mu.Unlock()

	first := make(chan error, 1)

	stop := f.src.Watch(
		func(s geohunt.PositionSample) {
			f.mu.Lock()
			if f.stopped {
				f.mu.Unlock()
				return
			}
			fix := f.gotFix
			f.gotFix = true
			f.mu.Unlock()

			if !fix {
				select {
				case first <- nil:
				default:
				}
			}
			f.obs.Sample(s)
		},
		func(se SourceError) {
			geoErr := Classify(se.Code, se.Message)

			f.mu.Lock()
			if f.stopped {
				f.mu.Unlock()
				return
			}
			fix := f.gotFix
			f.mu.Unlock()

			if !fix {
				select {
				case first <- geoErr:
				default:
				}
				return
			}
			f.obs.Status(geoErr)
		},
	)

	f.mu.Lock()
	f.stop = stop
	if f.stopped {
		// Stop raced Start; release the watch immediately.
		f.stop = nil
		f.mu.Unlock()
		stop()
		return &GeoError{Kind: Unknown, Message: "feed stopped"}
	}
	f.mu.Unlock()

	timer := time.NewTimer(f.Timeout)
	defer timer.Stop()

	select {
	case err := <-first:
		if err != nil {
			f.Stop()
			return err
		}
		return nil
	case <-timer.C:
		f.Stop()
		return &GeoError{Kind: Timeout, Message: "no position fix within acquisition window"}
	case <-ctx.Done():
		f.Stop()
		return &GeoError{Kind: Unknown, Message: ctx.Err().Error()}
	}
}

// Stop releases the underlying watch. It is idempotent and safe to call
// from any teardown path, including before or during Start.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()

	if stop != nil {
		stop()
	}
}
