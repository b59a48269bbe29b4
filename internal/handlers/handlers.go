package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/cache"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/hub"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/league"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/settler"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/store"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
)

// Runner triggers and reports settlement cycles
type Runner interface {
	RunOnce(ctx context.Context) (*settler.CycleReport, error)
	LastReport() *settler.CycleReport
}

// Handler serves the settlement API
type Handler struct {
	store     store.Store
	league    *league.League
	runner    Runner
	cache     cache.SummaryCache
	hub       *hub.Hub
	ctx       context.Context
	trigger   func()
	season    func() int
	startedAt time.Time
}

// Config holds the handler's dependencies. Runner, Cache and Hub are optional.
type Config struct {
	Store  store.Store
	League *league.League
	Runner Runner
	Cache  cache.SummaryCache
	Hub    *hub.Hub
	// Trigger queues a settlement cycle on the background loop
	Trigger func()
	// Season is the default season for queries without one
	Season func() int
	// Ctx bounds WebSocket client lifetimes; request contexts end too early
	Ctx context.Context
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Field   string `json:"field,omitempty"`
}

// NewHandler creates a new handler
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		store:     cfg.Store,
		league:    cfg.League,
		runner:    cfg.Runner,
		cache:     cfg.Cache,
		hub:       cfg.Hub,
		ctx:       cfg.Ctx,
		trigger:   cfg.Trigger,
		season:    cfg.Season,
		startedAt: time.Now(),
	}
	if h.cache == nil {
		h.cache = cache.Noop{}
	}
	if h.ctx == nil {
		h.ctx = context.Background()
	}
	if h.season == nil {
		h.season = func() int { return time.Now().Year() }
	}
	return h
}

// HealthCheck reports service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"service": "spread-settler",
			"error":   "database unreachable",
		})
		return
	}

	health := map[string]interface{}{
		"status":         "healthy",
		"service":        "spread-settler",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if h.hub != nil {
		health["active_clients"] = h.hub.GetClientCount()
	}
	respondJSON(w, http.StatusOK, health)
}

// Metrics returns hub metrics and the most recent settlement cycle
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{}
	if h.hub != nil {
		metrics["hub"] = h.hub.GetMetrics()
	}
	if h.runner != nil {
		metrics["last_cycle"] = h.runner.LastReport()
	}
	respondJSON(w, http.StatusOK, metrics)
}

// Teams lists every team with its division and colors
func (h *Handler) Teams(w http.ResponseWriter, r *http.Request) {
	teams := h.league.Teams()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams":     teams,
		"divisions": h.league.Divisions(),
		"count":     len(teams),
	})
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("error encoding response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		fmt.Printf("error: %s - %v\n", message, err)
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondSettlementError maps invalid input to 400 and everything else to 500
func respondSettlementError(w http.ResponseWriter, err error) {
	var invalid *settlement.InvalidInputError
	if errors.As(err, &invalid) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: invalid.Error(),
			Code:    http.StatusBadRequest,
			Field:   invalid.Field,
		})
		return
	}
	respondError(w, http.StatusInternalServerError, "settlement failed", err)
}
