package models

import "github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"

// SeasonHeadToHead is the season-to-date AI vs Vegas spread comparison
type SeasonHeadToHead struct {
	Season          int     `json:"season"`
	AIWins          int     `json:"ai_wins"`
	VegasWins       int     `json:"vegas_wins"`
	Ties            int     `json:"ties"`
	TotalGames      int     `json:"total_games"`
	AIPercentage    float64 `json:"ai_percentage"`
	VegasPercentage float64 `json:"vegas_percentage"`
}

// PerformanceStats summarizes settled predictions for a season or week
type PerformanceStats struct {
	Season  int              `json:"season"`
	Week    *int             `json:"week,omitempty"`
	Overall OverallStats     `json:"overall"`
	ByWeek  []WeeklyStats    `json:"by_week"`
	Lines   LineStats        `json:"lines"`
	Versus  SeasonHeadToHead `json:"versus"`
}

// OverallStats is the win/loss and error summary
type OverallStats struct {
	TotalGames         int     `json:"total_games"`
	CorrectPredictions int     `json:"correct_predictions"`
	WinAccuracy        float64 `json:"win_accuracy"`
	AvgMarginError     float64 `json:"avg_margin_error"`
	AvgHomeScoreError  float64 `json:"avg_home_score_error"`
	AvgAwayScoreError  float64 `json:"avg_away_score_error"`
	FirstWeek          int     `json:"first_week"`
	LatestWeek         int     `json:"latest_week"`
}

// WeeklyStats is one row of the week-by-week breakdown
type WeeklyStats struct {
	Week     int     `json:"week"`
	Games    int     `json:"games"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
	MAE      float64 `json:"mae"`
}

// LineStats is how each line fared against the spread and the total
type LineStats struct {
	AIRecord     settlement.Record       `json:"ai_record"`
	VegasRecord  settlement.Record       `json:"vegas_record"`
	TotalsRecord settlement.TotalsRecord `json:"totals_record"`
	AICloser     int                     `json:"ai_closer"`
	VegasCloser  int                     `json:"vegas_closer"`
	// AIPicks grades the side the AI backs at the Vegas spread
	AIPicks settlement.Record `json:"ai_picks"`
	// AIUnits is the flat one-unit result of AIPicks at -110
	AIUnits      string  `json:"ai_units"`
	BreakEvenPct float64 `json:"break_even_pct"`
}
