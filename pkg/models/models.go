package models

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
)

// GameStatus mirrors the scoreboard status of a game
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusFinal     GameStatus = "final"
)

// Game is one NFL matchup with its market lines and, once final, its score
type Game struct {
	GameID        string     `json:"game_id"`
	Season        int        `json:"season"`
	Week          int        `json:"week"`
	GameDate      string     `json:"game_date"`
	KickoffUTC    *time.Time `json:"kickoff_time_utc,omitempty"`
	HomeTeam      string     `json:"home_team"`
	AwayTeam      string     `json:"away_team"`
	HomeScore     *int       `json:"home_score"`
	AwayScore     *int       `json:"away_score"`
	SpreadLine    *float64   `json:"spread_line"`
	TotalLine     *float64   `json:"total_line"`
	ClosingSpread *float64   `json:"closing_spread"`
}

// Final reports whether both scores are known
func (g *Game) Final() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// VegasSpread prefers the locked closing spread over the opening line
func (g *Game) VegasSpread() *float64 {
	if g.ClosingSpread != nil {
		return g.ClosingSpread
	}
	return g.SpreadLine
}

// Prediction is a model's pre-game call for one game, stored alongside the
// market lines it is compared against
type Prediction struct {
	PredictionID       int64     `json:"prediction_id"`
	GameID             string    `json:"game_id"`
	Season             int       `json:"season"`
	Week               int       `json:"week"`
	HomeTeam           string    `json:"home_team"`
	AwayTeam           string    `json:"away_team"`
	GameDate           string    `json:"game_date,omitempty"`
	PredictedWinner    string    `json:"predicted_winner"`
	WinConfidence      *float64  `json:"win_confidence,omitempty"`
	HomeWinProb        *float64  `json:"home_win_prob,omitempty"`
	AwayWinProb        *float64  `json:"away_win_prob,omitempty"`
	PredictedHomeScore *float64  `json:"predicted_home_score,omitempty"`
	PredictedAwayScore *float64  `json:"predicted_away_score,omitempty"`
	PredictedMargin    *float64  `json:"predicted_margin,omitempty"`
	AISpread           *float64  `json:"ai_spread,omitempty"`
	VegasSpread        *float64  `json:"vegas_spread,omitempty"`
	VegasTotal         *float64  `json:"vegas_total,omitempty"`
	PredictedAt        time.Time `json:"predicted_at"`
}

// PendingSettlement is a prediction whose game has gone final but whose
// results have not been recorded yet
type PendingSettlement struct {
	Prediction Prediction `json:"prediction"`
	HomeScore  int        `json:"home_score"`
	AwayScore  int        `json:"away_score"`
}

// PredictionResult is everything recorded against a prediction once its game is final
type PredictionResult struct {
	PredictionID      int64                    `json:"prediction_id"`
	GameID            string                   `json:"game_id"`
	ActualWinner      string                   `json:"actual_winner"`
	ActualHomeScore   int                      `json:"actual_home_score"`
	ActualAwayScore   int                      `json:"actual_away_score"`
	ActualMargin      int                      `json:"actual_margin"`
	WinCorrect        bool                     `json:"win_prediction_correct"`
	HomeScoreError    *float64                 `json:"score_prediction_error_home,omitempty"`
	AwayScoreError    *float64                 `json:"score_prediction_error_away,omitempty"`
	MarginError       *float64                 `json:"margin_prediction_error,omitempty"`
	AISpreadResult    settlement.SpreadOutcome `json:"ai_spread_result,omitempty"`
	VegasSpreadResult settlement.SpreadOutcome `json:"vegas_spread_result,omitempty"`
	VegasTotalResult  settlement.TotalOutcome  `json:"vegas_total_result,omitempty"`
	HeadToHead        settlement.HeadToHead    `json:"head_to_head,omitempty"`
	ResultRecordedAt  time.Time                `json:"result_recorded_at"`
}

// SettledPrediction is a prediction joined with its recorded result
type SettledPrediction struct {
	Prediction
	Result PredictionResult `json:"result"`
}

// ScoreUpdate is a scoreboard observation for one matchup
type ScoreUpdate struct {
	HomeTeam      string     `json:"home_team"`
	AwayTeam      string     `json:"away_team"`
	GameDate      string     `json:"game_date"`
	HomeScore     *int       `json:"home_score"`
	AwayScore     *int       `json:"away_score"`
	Status        GameStatus `json:"status"`
	CurrentSpread *float64   `json:"current_spread"`
	KickoffUTC    time.Time  `json:"kickoff_time_utc"`
}

// SettlementEvent is published and broadcast once per settled prediction
type SettlementEvent struct {
	EventID   string                   `json:"event_id"`
	GameID    string                   `json:"game_id"`
	Season    int                      `json:"season"`
	Week      int                      `json:"week"`
	HomeTeam  string                   `json:"home_team"`
	AwayTeam  string                   `json:"away_team"`
	HomeScore int                      `json:"home_score"`
	AwayScore int                      `json:"away_score"`
	AI        *LineSettlement          `json:"ai,omitempty"`
	Vegas     *LineSettlement          `json:"vegas,omitempty"`
	Total     *settlement.TotalOutcome `json:"total,omitempty"`
	Winner    string                   `json:"winner"`
	SettledAt time.Time                `json:"settled_at"`
}

// LineSettlement is one settled spread with its display form
type LineSettlement struct {
	Spread   float64                  `json:"spread"`
	Favorite string                   `json:"favorite"`
	Outcome  settlement.SpreadOutcome `json:"outcome"`
	Badge    string                   `json:"badge"`
}
