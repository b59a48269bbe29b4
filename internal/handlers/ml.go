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
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/performance"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/store"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
	"github.com/go-chi/chi/v5"
)

// GameSettlement handles GET /api/v1/games/{gameID}/settlement. Lines are
// settled on request from the stored scores; nothing is written.
func (h *Handler) GameSettlement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	gameID := chi.URLParam(r, "gameID")
	game, err := h.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "game not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve game", err)
		return
	}

	if !game.Final() {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   http.StatusText(http.StatusConflict),
			Message: "game " + gameID + " has no final score",
			Code:    http.StatusConflict,
		})
		return
	}

	g, err := settlement.NewGameResult(game.HomeScore, game.AwayScore)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	var spreads []settlement.SpreadLine
	var totals []settlement.TotalLine
	if vegas := game.VegasSpread(); vegas != nil {
		spreads = append(spreads, settlement.SpreadLine{Source: settlement.SourceVegas, Value: *vegas})
	}
	if game.TotalLine != nil {
		totals = append(totals, settlement.TotalLine{Source: settlement.SourceVegas, Value: *game.TotalLine})
	}

	pred, err := h.store.GetPrediction(ctx, gameID)
	switch {
	case err == nil:
		if pred.AISpread != nil {
			spreads = append(spreads, settlement.SpreadLine{Source: settlement.SourceModelA, Value: *pred.AISpread})
		}
	case !errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusInternalServerError, "failed to retrieve prediction", err)
		return
	}

	resp, err := h.settleGame(g, game.HomeTeam, game.AwayTeam, spreads, totals)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":    game.GameID,
		"season":     game.Season,
		"week":       game.Week,
		"settlement": resp,
	})
}

// SeasonAIvsVegas handles GET /api/v1/ml/season-ai-vs-vegas/{season}
func (h *Handler) SeasonAIvsVegas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid season", err)
		return
	}

	if cached, err := h.cache.ReadHeadToHead(ctx, season); err == nil && cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	} else if err != nil {
		logCacheMiss(err)
	}

	settled, err := h.store.ListSettled(ctx, season, nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve settled predictions", err)
		return
	}

	h2h, err := performance.HeadToHead(season, settled)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	if err := h.cache.WriteHeadToHead(ctx, &h2h); err != nil {
		fmt.Printf("[API] ⚠️  cache write failed for season %d head-to-head: %v\n", season, err)
	}
	respondJSON(w, http.StatusOK, h2h)
}

// PerformanceStats handles GET /api/v1/ml/performance-stats?season=&week=
func (h *Handler) PerformanceStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	season := parseIntParam(r, "season", h.season())

	var week *int
	if wk := parseIntParam(r, "week", 0); wk > 0 {
		week = &wk
	}

	// only whole-season summaries are cached
	if week == nil {
		if cached, err := h.cache.ReadSeasonSummary(ctx, season); err == nil && cached != nil {
			respondJSON(w, http.StatusOK, cached)
			return
		} else if err != nil {
			logCacheMiss(err)
		}
	}

	settled, err := h.store.ListSettled(ctx, season, week)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve settled predictions", err)
		return
	}

	stats, err := performance.Summarize(season, week, settled)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	if week == nil {
		if err := h.cache.WriteSeasonSummary(ctx, stats); err != nil {
			fmt.Printf("[API] ⚠️  cache write failed for season %d summary: %v\n", season, err)
		}
	}
	respondJSON(w, http.StatusOK, stats)
}

// logCacheMiss reports cache failures; the store is always the fallback
func logCacheMiss(err error) {
	if !errors.Is(err, cache.ErrMiss) {
		fmt.Printf("[API] ⚠️  cache read failed, using store: %v\n", err)
	}
}

// UpdateResults handles POST /api/v1/ml/update-results by running a
// settlement cycle immediately. With ?async=true the cycle is queued on the
// background loop and the request returns at once.
func (h *Handler) UpdateResults(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" && h.trigger != nil {
		h.trigger()
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"success": true,
			"queued":  true,
		})
		return
	}

	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "settler not running", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	report, err := h.runner.RunOnce(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settlement cycle failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"updated": report.Settled,
		"report":  report,
	})
}

// SavePredictionsRequest is the body of POST /api/v1/ml/save-predictions
type SavePredictionsRequest struct {
	Predictions []models.Prediction `json:"predictions"`
}

// SavePredictions handles POST /api/v1/ml/save-predictions
func (h *Handler) SavePredictions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req SavePredictionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Predictions) == 0 {
		respondError(w, http.StatusBadRequest, "no predictions provided", nil)
		return
	}

	for i, p := range req.Predictions {
		if p.GameID == "" || p.HomeTeam == "" || p.AwayTeam == "" || p.Season == 0 {
			respondError(w, http.StatusBadRequest,
				"prediction "+strconv.Itoa(i)+": game_id, season, home_team and away_team are required", nil)
			return
		}
		req.Predictions[i].HomeTeam = h.teamLabel(p.HomeTeam)
		req.Predictions[i].AwayTeam = h.teamLabel(p.AwayTeam)
		if p.PredictedWinner != "" && p.PredictedWinner != settlement.Tie {
			req.Predictions[i].PredictedWinner = h.teamLabel(p.PredictedWinner)
		}
	}

	saved, err := h.store.SavePredictions(ctx, req.Predictions)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save predictions", err)
		return
	}

	seasons := make(map[int]bool)
	for _, p := range req.Predictions {
		seasons[p.Season] = true
	}
	for season := range seasons {
		if err := h.cache.Invalidate(ctx, season); err != nil {
			fmt.Printf("[API] ⚠️  cache invalidate failed for season %d: %v\n", season, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"saved":   saved,
		"message": "Saved " + strconv.Itoa(saved) + " predictions to tracking table",
	})
}
