package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/timetrailhk/geohunt/internal/geohunt"
)

// AdminTrailRequest is the full trail document an admin submits, answers
// included.
type AdminTrailRequest struct {
	Name        string             `json:"name"`
	City        string             `json:"city"`
	Description string             `json:"description"`
	Locations   []geohunt.Location `json:"locations"`
}

func (req *AdminTrailRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return "name is required"
	}
	t := geohunt.Trail{
		Name:      req.Name,
		Locations: req.Locations,
	}
	if err := t.Validate(); err != nil {
		return strings.TrimPrefix(err.Error(), "invalid trail: ")
	}
	return ""
}

func (req *AdminTrailRequest) trail() geohunt.Trail {
	return geohunt.Trail{
		Name:        req.Name,
		City:        req.City,
		Description: req.Description,
		Locations:   req.Locations,
	}
}

// AdminTrailDetail is the admin view of a trail, answers included.
type AdminTrailDetail struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	City        string             `json:"city"`
	Description string             `json:"description"`
	Locations   []geohunt.Location `json:"locations"`
}

func adminTrailDetail(t geohunt.Trail) AdminTrailDetail {
	return AdminTrailDetail{
		ID:          t.ID,
		Name:        t.Name,
		City:        t.City,
		Description: t.Description,
		Locations:   t.Locations,
	}
}

func handleAdminListTrails(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := trails.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []TrailSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleAdminCreateTrail(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminTrailRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		created, err := trails.Create(r.Context(), req.trail())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, adminTrailDetail(created))
	}
}

func handleAdminGetTrail(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		trail, err := trails.Get(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "trail not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminTrailDetail(trail))
	}
}

func handleAdminUpdateTrail(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req AdminTrailRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		updated, err := trails.Update(r.Context(), id, req.trail())
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "trail not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminTrailDetail(updated))
	}
}

func handleAdminDeleteTrail(trails *TrailStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := trails.Delete(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "trail not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
