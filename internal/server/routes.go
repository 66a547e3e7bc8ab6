package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoHunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, deps.DB, deps.Redis))

	// Streaming surfaces take the token as a query parameter because neither
	// EventSource nor the browser WebSocket API can set headers.
	r.Get("/ws/positions", handleWSPositions(logger, deps.Sessions, broker))

	// Player routes, authenticated by bearer session token.
	r.Route("/api", func(r chi.Router) {
		r.Get("/trails", handleListTrails(deps.Trails))
		r.Post("/sessions", handleStartSession(deps.Sessions))
		r.Delete("/sessions", handleAbandonSession(deps.Sessions))

		r.Route("/game", func(r chi.Router) {
			r.Get("/state", handleGameState(deps.Sessions))
			r.Post("/position", handlePosition(deps.Sessions, broker))
			r.Post("/answer", handleAnswer(deps.Sessions, broker))
			r.Get("/hint", handleHint(deps.Sessions))
			r.Get("/events", handleEvents(deps.Sessions, broker))
		})
	})

	// Admin auth.
	r.Post("/api/admin/login", handleAdminLogin(deps.DB))
	r.Post("/api/admin/logout", handleAdminLogout(deps.DB))
	r.Get("/api/admin/me", handleAdminMe(deps.DB))

	// Admin trail catalog.
	r.Route("/api/admin/trails", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.DB))
		r.Get("/", handleAdminListTrails(deps.Trails))
		r.Post("/", handleAdminCreateTrail(deps.Trails))
		r.Get("/{id}", handleAdminGetTrail(deps.Trails))
		r.Put("/{id}", handleAdminUpdateTrail(deps.Trails))
		r.Delete("/{id}", handleAdminDeleteTrail(deps.Trails))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
