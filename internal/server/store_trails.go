package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

var ErrNotFound = errors.New("not found")

// trailDoc is the JSONB document stored per trail.
type trailDoc struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	City        string             `json:"city"`
	Description string             `json:"description"`
	Locations   []geohunt.Location `json:"locations"`
	CreatedAt   string             `json:"createdAt"`
}

func (d trailDoc) trail() geohunt.Trail {
	return geohunt.Trail{
		ID:          d.ID,
		Name:        d.Name,
		City:        d.City,
		Description: d.Description,
		Locations:   d.Locations,
	}
}

// TrailStore keeps the trail catalog in a SQLite table with a JSONB data
// column.
type TrailStore struct {
	db *sql.DB
}

func NewTrailStore(ctx context.Context, db *sql.DB) (*TrailStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trails (
			id   TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			data JSONB NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating trails table: %w", err)
	}
	return &TrailStore{db: db}, nil
}

func (s *TrailStore) put(ctx context.Context, doc trailDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trails (id, name, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data`,
		doc.ID, doc.Name, string(data),
	)
	return err
}

func (s *TrailStore) getDoc(ctx context.Context, id string) (trailDoc, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM trails WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return trailDoc{}, ErrNotFound
	}
	if err != nil {
		return trailDoc{}, err
	}
	var doc trailDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return trailDoc{}, err
	}
	return doc, nil
}

// Get returns the trail with the given id.
func (s *TrailStore) Get(ctx context.Context, id string) (geohunt.Trail, error) {
	doc, err := s.getDoc(ctx, id)
	if err != nil {
		return geohunt.Trail{}, err
	}
	return doc.trail(), nil
}

// TrailSummary is the catalog listing shape; it carries no answers.
type TrailSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	Description   string `json:"description"`
	LocationCount int    `json:"locationCount"`
	CreatedAt     string `json:"createdAt"`
}

// List returns catalog summaries in name order.
func (s *TrailStore) List(ctx context.Context) ([]TrailSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM trails ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrailSummary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc trailDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		out = append(out, TrailSummary{
			ID:            doc.ID,
			Name:          doc.Name,
			City:          doc.City,
			Description:   doc.Description,
			LocationCount: len(doc.Locations),
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, rows.Err()
}

// Count returns the number of trails in the catalog.
func (s *TrailStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trails`).Scan(&n)
	return n, err
}

// Create stores a validated trail and returns it with its assigned id.
func (s *TrailStore) Create(ctx context.Context, t geohunt.Trail) (geohunt.Trail, error) {
	doc := trailDoc{
		ID:          newID(),
		Name:        t.Name,
		City:        t.City,
		Description: t.Description,
		Locations:   t.Locations,
		CreatedAt:   nowUTC(),
	}
	if err := s.put(ctx, doc); err != nil {
		return geohunt.Trail{}, err
	}
	return doc.trail(), nil
}

// Update replaces an existing trail's content, keeping id and creation time.
func (s *TrailStore) Update(ctx context.Context, id string, t geohunt.Trail) (geohunt.Trail, error) {
	doc, err := s.getDoc(ctx, id)
	if err != nil {
		return geohunt.Trail{}, err
	}
	doc.Name = t.Name
	doc.City = t.City
	doc.Description = t.Description
	doc.Locations = t.Locations
	if err := s.put(ctx, doc); err != nil {
		return geohunt.Trail{}, err
	}
	return doc.trail(), nil
}

// Delete removes a trail from the catalog.
func (s *TrailStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trails WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
