package handlers

import "github.com/go-chi/chi/v5"

// Mount registers every route on r
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/metrics", h.Metrics)
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		// Stateless settlement
		r.Post("/settle/spread", h.SettleSpread)
		r.Post("/settle/total", h.SettleTotal)
		r.Post("/settle/game", h.SettleGame)
		r.Get("/favorite", h.Favorite)

		// Stored games
		r.Get("/games/{gameID}/settlement", h.GameSettlement)
		r.Get("/teams", h.Teams)

		// Prediction tracking
		r.Route("/ml", func(r chi.Router) {
			r.Get("/season-ai-vs-vegas/{season}", h.SeasonAIvsVegas)
			r.Get("/performance-stats", h.PerformanceStats)
			r.Post("/update-results", h.UpdateResults)
			r.Post("/save-predictions", h.SavePredictions)
		})
	})
}
