package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/timetrailhk/geohunt/internal/feed"
	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// wsMessage is one frame on the position stream. The client relays either a
// geolocation fix or the platform's error (code matches the W3C geolocation
// codes, which the feed classifies).
type wsMessage struct {
	Type     string  `json:"type"` // "position" or "error"
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	Code     int     `json:"code,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// wsSource adapts a websocket read loop into a feed.Source. Callbacks fire
// synchronously from the single read goroutine, so delivery is serialized
// and in order.
type wsSource struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newWSSource(ctx context.Context, conn *websocket.Conn) *wsSource {
	ctx, cancel := context.WithCancel(ctx)
	return &wsSource{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *wsSource) Watch(sample func(geohunt.PositionSample), fail func(feed.SourceError)) func() {
	go func() {
		defer close(s.done)
		for {
			_, data, err := s.conn.Read(s.ctx)
			if err != nil {
				if s.ctx.Err() == nil {
					fail(feed.SourceError{Code: feed.CodePositionUnavailable, Message: "position stream closed"})
				}
				return
			}

			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "position":
				sample(geohunt.PositionSample{Lat: msg.Lat, Lng: msg.Lng, Accuracy: msg.Accuracy})
			case "error":
				fail(feed.SourceError{Code: msg.Code, Message: msg.Message})
			}
		}
	}()
	return s.cancel
}

// sessionObserver pipes feed output into the progression engine: every
// sample loads the session, applies the update, saves it back, and fans the
// resulting events out to SSE subscribers.
type sessionObserver struct {
	logger   *slog.Logger
	sessions *SessionStore
	broker   *Broker
	token    string
}

func (o *sessionObserver) Sample(s geohunt.PositionSample) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := o.sessions.Load(ctx, o.token)
	if err != nil {
		o.logger.Error("loading session for position sample", "error", err)
		return
	}
	events := sess.Update(s)
	if err := o.sessions.Save(ctx, o.token, sess); err != nil {
		o.logger.Error("saving session after position sample", "error", err)
		return
	}
	o.broker.PublishAll(o.token, toSSEEvents(events))
}

func (o *sessionObserver) Status(geoErr *feed.GeoError) {
	o.broker.Publish(o.token, SSEEvent{
		Type:    "gps_status",
		Message: geoErr.Error(),
	})
}

// handleWSPositions accepts a websocket position stream for one session.
// The first fix must arrive within the feed's acquisition window or the
// stream is rejected with the classified error.
func handleWSPositions(logger *slog.Logger, sessions *SessionStore, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}
		if _, err := sessions.Load(r.Context(), token); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		src := newWSSource(r.Context(), conn)
		obs := &sessionObserver{
			logger:   logger,
			sessions: sessions,
			broker:   broker,
			token:    token,
		}

		f := feed.New(src, obs)
		defer f.Stop()

		if err := f.Start(r.Context()); err != nil {
			var geoErr *feed.GeoError
			if errors.As(err, &geoErr) {
				payload, _ := json.Marshal(map[string]string{
					"type":    "gps_error",
					"kind":    string(geoErr.Kind),
					"message": geoErr.Message,
				})
				writeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				conn.Write(writeCtx, websocket.MessageText, payload)
				cancel()
			}
			conn.Close(websocket.StatusPolicyViolation, "no position fix")
			return
		}

		// First fix acquired; keep consuming until the client goes away.
		select {
		case <-r.Context().Done():
		case <-src.done:
		}
	}
}
