package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
)

// SpreadRequest asks for one spread settlement. Teams are optional and only
// add the favorite's description.
type SpreadRequest struct {
	ActualMargin *float64 `json:"actual_margin"`
	Spread       *float64 `json:"spread"`
	HomeTeam     string   `json:"home_team,omitempty"`
	AwayTeam     string   `json:"away_team,omitempty"`
}

// SpreadResponse is the settled spread
type SpreadResponse struct {
	Outcome  settlement.SpreadOutcome `json:"outcome"`
	Covered  bool                     `json:"covered"`
	Symbol   string                   `json:"symbol"`
	Spread   string                   `json:"spread"`
	Favorite *FavoriteResponse        `json:"favorite,omitempty"`
}

// TotalRequest asks for one over/under settlement
type TotalRequest struct {
	ActualTotal *float64 `json:"actual_total"`
	TotalLine   *float64 `json:"total_line"`
}

// TotalResponse is the settled total
type TotalResponse struct {
	Outcome settlement.TotalOutcome `json:"outcome"`
}

// GameRequest settles every line on one game
type GameRequest struct {
	HomeTeam  string                  `json:"home_team"`
	AwayTeam  string                  `json:"away_team"`
	HomeScore *int                    `json:"home_score"`
	AwayScore *int                    `json:"away_score"`
	Spreads   []settlement.SpreadLine `json:"spreads"`
	Totals    []settlement.TotalLine  `json:"totals"`
}

// GameResponse is a game's settlement with display fields
type GameResponse struct {
	HomeTeam   string                     `json:"home_team"`
	AwayTeam   string                     `json:"away_team"`
	HomeScore  int                        `json:"home_score"`
	AwayScore  int                        `json:"away_score"`
	Winner     string                     `json:"winner"`
	Settlement *settlement.GameSettlement `json:"settlement"`
	Favorites  []FavoriteResponse         `json:"favorites"`
	HeadToHead settlement.HeadToHead      `json:"head_to_head,omitempty"`
}

// FavoriteResponse is a favorite with its rendered label
type FavoriteResponse struct {
	settlement.Favorite
	Source  settlement.Source `json:"source,omitempty"`
	Display string            `json:"display"`
}

func describe(source settlement.Source, spread float64, home, away string) (FavoriteResponse, error) {
	fav, err := settlement.DescribeFavorite(spread, home, away)
	if err != nil {
		return FavoriteResponse{}, err
	}
	return FavoriteResponse{Favorite: fav, Source: source, Display: fav.String()}, nil
}

// SettleSpread handles POST /api/v1/settle/spread
func (h *Handler) SettleSpread(w http.ResponseWriter, r *http.Request) {
	var req SpreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ActualMargin == nil || req.Spread == nil {
		respondError(w, http.StatusBadRequest, "actual_margin and spread are required", nil)
		return
	}

	outcome, err := settlement.EvaluateSpread(*req.ActualMargin, *req.Spread)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	resp := SpreadResponse{
		Outcome: outcome,
		Covered: outcome.Covered(),
		Symbol:  outcome.Symbol(),
		Spread:  settlement.FormatSpread(*req.Spread),
	}
	if req.HomeTeam != "" && req.AwayTeam != "" {
		fav, err := describe("", *req.Spread, h.teamLabel(req.HomeTeam), h.teamLabel(req.AwayTeam))
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		resp.Favorite = &fav
	}

	respondJSON(w, http.StatusOK, resp)
}

// SettleTotal handles POST /api/v1/settle/total
func (h *Handler) SettleTotal(w http.ResponseWriter, r *http.Request) {
	var req TotalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ActualTotal == nil || req.TotalLine == nil {
		respondError(w, http.StatusBadRequest, "actual_total and total_line are required", nil)
		return
	}

	outcome, err := settlement.EvaluateTotal(*req.ActualTotal, *req.TotalLine)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TotalResponse{Outcome: outcome})
}

// SettleGame handles POST /api/v1/settle/game
func (h *Handler) SettleGame(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.HomeTeam == "" || req.AwayTeam == "" {
		respondError(w, http.StatusBadRequest, "home_team and away_team are required", nil)
		return
	}

	g, err := settlement.NewGameResult(req.HomeScore, req.AwayScore)
	if err != nil {
		respondSettlementError(w, err)
		return
	}

	resp, err := h.settleGame(g, req.HomeTeam, req.AwayTeam, req.Spreads, req.Totals)
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// settleGame settles every line and adds display fields. When exactly one
// model line and one Vegas line are present it also scores them head to head.
func (h *Handler) settleGame(g settlement.GameResult, home, away string, spreads []settlement.SpreadLine, totals []settlement.TotalLine) (*GameResponse, error) {
	home, away = h.teamLabel(home), h.teamLabel(away)

	settled, err := settlement.SettleGame(g, spreads, totals)
	if err != nil {
		return nil, err
	}

	resp := &GameResponse{
		HomeTeam:   home,
		AwayTeam:   away,
		HomeScore:  g.HomeScore,
		AwayScore:  g.AwayScore,
		Winner:     g.Winner(home, away),
		Settlement: settled,
		Favorites:  make([]FavoriteResponse, 0, len(spreads)),
	}

	var model, market []settlement.SpreadLine
	for _, line := range spreads {
		fav, err := describe(line.Source, line.Value, home, away)
		if err != nil {
			return nil, err
		}
		resp.Favorites = append(resp.Favorites, fav)

		if line.Source == settlement.SourceVegas {
			market = append(market, line)
		} else {
			model = append(model, line)
		}
	}

	if len(model) == 1 && len(market) == 1 {
		verdict, err := settlement.CompareLines(g, model[0], market[0])
		if err != nil {
			return nil, err
		}
		resp.HeadToHead = verdict
	}

	return resp, nil
}

// Favorite handles GET /api/v1/favorite?spread=-6.1&home=HOU&away=BUF
func (h *Handler) Favorite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	home, away := q.Get("home"), q.Get("away")
	if home == "" || away == "" {
		respondError(w, http.StatusBadRequest, "home and away are required", nil)
		return
	}

	spread, err := strconv.ParseFloat(strings.TrimSpace(q.Get("spread")), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "spread must be a number", err)
		return
	}

	fav, err := describe("", spread, h.teamLabel(home), h.teamLabel(away))
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fav)
}

// teamLabel canonicalizes known abbreviations and passes anything else through
func (h *Handler) teamLabel(abbr string) string {
	if h.league == nil {
		return abbr
	}
	if canonical, ok := h.league.Normalize(abbr); ok {
		return canonical
	}
	return abbr
}
