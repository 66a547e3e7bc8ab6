package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/timetrailhk/geohunt/internal/engine"
)

// SessionStore keeps live play sessions in redis: one engine snapshot per
// bearer token, expiring after the TTL so abandoned sessions clean
// themselves up. Finished or abandoned sessions are never archived.
type SessionStore struct {
	rdb    *redis.Client
	trails *TrailStore
	ttl    time.Duration
}

func NewSessionStore(rdb *redis.Client, trails *TrailStore, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, trails: trails, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create starts a session on the given trail and returns its bearer token.
func (s *SessionStore) Create(ctx context.Context, trailID string) (string, *engine.Session, error) {
	trail, err := s.trails.Get(ctx, trailID)
	if err != nil {
		return "", nil, err
	}
	if err := trail.Validate(); err != nil {
		return "", nil, fmt.Errorf("trail %q: %w", trailID, err)
	}

	sess := engine.New(trail)
	token := uuid.NewString()
	if err := s.Save(ctx, token, sess); err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Load rebuilds the session behind a token. Missing or expired tokens
// return ErrNotFound.
func (s *SessionStore) Load(ctx context.Context, token string) (*engine.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	trail, err := s.trails.Get(ctx, snap.TrailID)
	if err != nil {
		return nil, fmt.Errorf("loading trail for session: %w", err)
	}
	sess, err := engine.Restore(trail, snap)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return sess, nil
}

// Save writes the session snapshot back and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, token string, sess *engine.Session) error {
	data, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete discards a session. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
