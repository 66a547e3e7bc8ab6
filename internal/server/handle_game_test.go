package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/timetrailhk/geohunt/internal/database"
)

func setupStores(t *testing.T) (*TrailStore, *SessionStore) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	trails, err := NewTrailStore(ctx, db)
	if err != nil {
		t.Fatalf("init trail store: %v", err)
	}
	if err := SeedDemo(ctx, slog.Default(), trails); err != nil {
		t.Fatalf("seed demo trail: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return trails, NewSessionStore(rdb, trails, time.Hour)
}

func gameRouter(t *testing.T) *chi.Mux {
	t.Helper()
	trails, sessions := setupStores(t)
	broker := NewBroker()

	r := chi.NewRouter()
	r.Get("/api/trails", handleListTrails(trails))
	r.Post("/api/sessions", handleStartSession(sessions))
	r.Get("/api/game/state", handleGameState(sessions))
	r.Post("/api/game/position", handlePosition(sessions, broker))
	r.Post("/api/game/answer", handleAnswer(sessions, broker))
	r.Get("/api/game/hint", handleHint(sessions))
	r.Delete("/api/sessions", handleAbandonSession(sessions))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func demoTrailID(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doJSON(t, r, http.MethodGet, "/api/trails", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list trails: %d: %s", w.Code, w.Body.String())
	}
	var list []TrailSummary
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 {
		t.Fatalf("trails = %d, want 1 seeded demo trail", len(list))
	}
	return list[0].ID
}

func startSession(t *testing.T, r http.Handler) string {
	t.Helper()
	id := demoTrailID(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/sessions", "", StartSessionRequest{TrailID: id})
	if w.Code != http.StatusOK {
		t.Fatalf("start session: %d: %s", w.Code, w.Body.String())
	}
	var resp StartSessionResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatal("empty session token")
	}
	if resp.Trail.TotalLocations != 3 {
		t.Fatalf("totalLocations = %d, want 3", resp.Trail.TotalLocations)
	}
	return resp.Token
}

func TestListTrails(t *testing.T) {
	r := gameRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/trails", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var list []TrailSummary
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 || list[0].Name != "時光之旅" {
		t.Fatalf("unexpected catalog: %+v", list)
	}
	if list[0].LocationCount != 3 {
		t.Fatalf("locationCount = %d, want 3", list[0].LocationCount)
	}
}

func TestStartSessionUnknownTrail(t *testing.T) {
	r := gameRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", "", StartSessionRequest{TrailID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGameStateBeforeFirstFix(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/game/state", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state GameStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.Phase != "awaiting_fix" {
		t.Errorf("phase = %q, want awaiting_fix", state.Phase)
	}
	if state.Progress.Visited != 0 || state.Progress.Total != 3 {
		t.Errorf("progress = %+v, want 0/3", state.Progress)
	}
	if state.Active != nil || state.LastPosition != nil {
		t.Errorf("state = %+v, want no active location and no position", state)
	}
}

func TestPositionActivatesLocation(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/game/position", token,
		PositionRequest{Lat: 22.3191, Lng: 114.1694, Accuracy: 12})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PositionResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Activated == nil || resp.Activated.ID != "test-1" {
		t.Fatalf("activated = %+v, want test-1", resp.Activated)
	}
	if resp.Activated.Question == "" {
		t.Error("activation carries no question")
	}
	if resp.Phase != "location_active" {
		t.Errorf("phase = %q, want location_active", resp.Phase)
	}
	if resp.Guidance == nil || !resp.Guidance.WithinRange {
		t.Errorf("guidance = %+v, want nearest within range", resp.Guidance)
	}
	if resp.GPS == nil || resp.GPS.Grade != "good" {
		t.Errorf("gps = %+v, want good grade for 12 m accuracy", resp.GPS)
	}
}

func TestPositionOutOfRangeGuidesOnly(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	// ~85 m from the first stop: outside every 50 m fence, inside guidance.
	w := doJSON(t, r, http.MethodPost, "/api/game/position", token,
		PositionRequest{Lat: 22.3187, Lng: 114.1686, Accuracy: 8})
	var resp PositionResponse
	json.NewDecoder(w.Body).Decode(&resp)

	if resp.Activated != nil {
		t.Fatalf("activated = %+v, want none outside the fences", resp.Activated)
	}
	if resp.Guidance == nil || resp.Guidance.NearestID != "test-1" {
		t.Fatalf("guidance = %+v, want nearest test-1", resp.Guidance)
	}
	if resp.Guidance.DistanceMeters < 80 || resp.Guidance.DistanceMeters > 95 {
		t.Errorf("distance = %d m, want ~85", resp.Guidance.DistanceMeters)
	}
}

func TestPositionValidation(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	bad := []PositionRequest{
		{Lat: 91, Lng: 0, Accuracy: 1},
		{Lat: 0, Lng: 181, Accuracy: 1},
		{Lat: 0, Lng: 0, Accuracy: -1},
	}
	for _, req := range bad {
		w := doJSON(t, r, http.MethodPost, "/api/game/position", token, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("position %+v: expected 400, got %d", req, w.Code)
		}
	}
}

func TestAnswerFlow(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	// No active location yet.
	w := doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: "公園"})
	if w.Code != http.StatusConflict {
		t.Fatalf("answer before activation: expected 409, got %d", w.Code)
	}

	doJSON(t, r, http.MethodPost, "/api/game/position", token,
		PositionRequest{Lat: 22.3191, Lng: 114.1694, Accuracy: 10})

	// Blank answer.
	w = doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank answer: expected 400, got %d", w.Code)
	}

	// Wrong answer leaves the question open.
	w = doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: "海灘"})
	if w.Code != http.StatusOK {
		t.Fatalf("wrong answer: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp AnswerResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Correct || resp.Visited != 0 {
		t.Fatalf("wrong answer response = %+v", resp)
	}

	// Hint is available while the question is open.
	w = doJSON(t, r, http.MethodGet, "/api/game/hint", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hint: expected 200, got %d", w.Code)
	}
	var hint HintResponse
	json.NewDecoder(w.Body).Decode(&hint)
	if hint.Hint != "看看周圍的綠化環境" {
		t.Fatalf("hint = %q", hint.Hint)
	}

	// Case/space variant of the correct answer is accepted.
	w = doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: "  公園 "})
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Correct || resp.Visited != 1 || resp.GameComplete {
		t.Fatalf("correct answer response = %+v", resp)
	}

	// The question is gone; answering again conflicts instead of
	// double-counting.
	w = doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: "公園"})
	if w.Code != http.StatusConflict {
		t.Fatalf("repeat answer: expected 409, got %d", w.Code)
	}
}

func TestFullGameOverHTTP(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	steps := []struct {
		lat, lng float64
		answer   string
	}{
		{22.3191, 114.1694, "公園"},
		{22.3195, 114.1702, "市集"},
		{22.3200, 114.1710, "滿意"},
	}

	var last AnswerResponse
	for _, step := range steps {
		w := doJSON(t, r, http.MethodPost, "/api/game/position", token,
			PositionRequest{Lat: step.lat, Lng: step.lng, Accuracy: 10})
		if w.Code != http.StatusOK {
			t.Fatalf("position: %d: %s", w.Code, w.Body.String())
		}
		w = doJSON(t, r, http.MethodPost, "/api/game/answer", token, AnswerRequest{Answer: step.answer})
		if w.Code != http.StatusOK {
			t.Fatalf("answer %q: %d: %s", step.answer, w.Code, w.Body.String())
		}
		json.NewDecoder(w.Body).Decode(&last)
	}

	if !last.GameComplete || last.Visited != 3 {
		t.Fatalf("final answer response = %+v, want completed 3/3", last)
	}
	if last.Message == "" {
		t.Error("completion message missing")
	}

	var state GameStateResponse
	w := doJSON(t, r, http.MethodGet, "/api/game/state", token, nil)
	json.NewDecoder(w.Body).Decode(&state)
	if state.Phase != "completed" {
		t.Fatalf("phase = %q, want completed", state.Phase)
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	r := gameRouter(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/game/state"},
		{http.MethodPost, "/api/game/position"},
		{http.MethodPost, "/api/game/answer"},
		{http.MethodGet, "/api/game/hint"},
	}
	for _, p := range paths {
		w := doJSON(t, r, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestAbandonSession(t *testing.T) {
	r := gameRouter(t)
	token := startSession(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/sessions", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("abandon: expected 204, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/game/state", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("state after abandon: expected 401, got %d", w.Code)
	}
}
