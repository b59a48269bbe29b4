package performance

import (
	"sort"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/oddsmath"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
	"github.com/shopspring/decimal"
)

// Summarize builds season (or single-week) performance from settled
// predictions. Spread and total outcomes are recomputed from the recorded
// scores rather than read back from storage.
func Summarize(season int, week *int, settled []models.SettledPrediction) (*models.PerformanceStats, error) {
	stats := &models.PerformanceStats{
		Season: season,
		Week:   week,
		ByWeek: []models.WeeklyStats{},
	}

	rows := filter(season, week, settled)
	stats.Overall = overall(rows)
	stats.ByWeek = weekly(rows)

	lines, err := lineStats(rows)
	if err != nil {
		return nil, err
	}
	stats.Lines = lines

	versus, err := HeadToHead(season, rows)
	if err != nil {
		return nil, err
	}
	stats.Versus = versus

	return stats, nil
}

// HeadToHead tallies which spread fared better on every settled game that
// carries both an AI and a Vegas line
func HeadToHead(season int, settled []models.SettledPrediction) (models.SeasonHeadToHead, error) {
	h2h := models.SeasonHeadToHead{Season: season}

	for _, sp := range settled {
		if sp.Season != season || sp.AISpread == nil || sp.VegasSpread == nil {
			continue
		}

		verdict, err := settlement.CompareLines(result(sp),
			settlement.SpreadLine{Source: settlement.SourceModelA, Value: *sp.AISpread},
			settlement.SpreadLine{Source: settlement.SourceVegas, Value: *sp.VegasSpread},
		)
		if err != nil {
			return h2h, err
		}

		h2h.TotalGames++
		switch verdict {
		case settlement.ModelBetter:
			h2h.AIWins++
		case settlement.MarketBetter:
			h2h.VegasWins++
		default:
			h2h.Ties++
		}
	}

	h2h.AIPercentage = percent(h2h.AIWins, h2h.TotalGames, 1)
	h2h.VegasPercentage = percent(h2h.VegasWins, h2h.TotalGames, 1)
	return h2h, nil
}

func filter(season int, week *int, settled []models.SettledPrediction) []models.SettledPrediction {
	rows := make([]models.SettledPrediction, 0, len(settled))
	for _, sp := range settled {
		if sp.Season != season {
			continue
		}
		if week != nil && sp.Week != *week {
			continue
		}
		rows = append(rows, sp)
	}
	return rows
}

func result(sp models.SettledPrediction) settlement.GameResult {
	return settlement.GameResult{HomeScore: sp.Result.ActualHomeScore, AwayScore: sp.Result.ActualAwayScore}
}

func overall(rows []models.SettledPrediction) models.OverallStats {
	o := models.OverallStats{TotalGames: len(rows)}
	if len(rows) == 0 {
		return o
	}

	var margin, home, away mean
	o.FirstWeek, o.LatestWeek = rows[0].Week, rows[0].Week
	for _, sp := range rows {
		if sp.Result.WinCorrect {
			o.CorrectPredictions++
		}
		margin.add(sp.Result.MarginError)
		home.add(sp.Result.HomeScoreError)
		away.add(sp.Result.AwayScoreError)

		if sp.Week < o.FirstWeek {
			o.FirstWeek = sp.Week
		}
		if sp.Week > o.LatestWeek {
			o.LatestWeek = sp.Week
		}
	}

	o.WinAccuracy = percent(o.CorrectPredictions, o.TotalGames, 2)
	o.AvgMarginError = margin.value(2)
	o.AvgHomeScoreError = home.value(2)
	o.AvgAwayScoreError = away.value(2)
	return o
}

// weekly returns the breakdown with the latest week first
func weekly(rows []models.SettledPrediction) []models.WeeklyStats {
	type acc struct {
		games, correct int
		mae            mean
	}

	byWeek := make(map[int]*acc)
	for _, sp := range rows {
		a, ok := byWeek[sp.Week]
		if !ok {
			a = &acc{}
			byWeek[sp.Week] = a
		}
		a.games++
		if sp.Result.WinCorrect {
			a.correct++
		}
		a.mae.add(sp.Result.MarginError)
	}

	out := make([]models.WeeklyStats, 0, len(byWeek))
	for week, a := range byWeek {
		out = append(out, models.WeeklyStats{
			Week:     week,
			Games:    a.games,
			Correct:  a.correct,
			Accuracy: percent(a.correct, a.games, 1),
			MAE:      a.mae.value(1),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week > out[j].Week })
	return out
}

func lineStats(rows []models.SettledPrediction) (models.LineStats, error) {
	var ls models.LineStats

	for _, sp := range rows {
		g := result(sp)

		if sp.AISpread != nil {
			outcome, err := settlement.EvaluateSpread(float64(g.Margin()), *sp.AISpread)
			if err != nil {
				return ls, err
			}
			ls.AIRecord.AddSpread(outcome)
		}

		if sp.VegasSpread != nil {
			outcome, err := settlement.EvaluateSpread(float64(g.Margin()), *sp.VegasSpread)
			if err != nil {
				return ls, err
			}
			ls.VegasRecord.AddSpread(outcome)
		}

		if sp.VegasTotal != nil {
			outcome, err := settlement.EvaluateTotal(float64(g.Total()), *sp.VegasTotal)
			if err != nil {
				return ls, err
			}
			ls.TotalsRecord.Add(outcome)
		}

		if sp.AISpread != nil && sp.VegasSpread != nil {
			closer, err := settlement.Closer(g,
				settlement.SpreadLine{Source: settlement.SourceModelA, Value: *sp.AISpread},
				settlement.SpreadLine{Source: settlement.SourceVegas, Value: *sp.VegasSpread},
			)
			if err != nil {
				return ls, err
			}
			switch closer {
			case settlement.ModelBetter:
				ls.AICloser++
			case settlement.MarketBetter:
				ls.VegasCloser++
			}

			if err := addPick(&ls.AIPicks, g, *sp.AISpread, *sp.VegasSpread); err != nil {
				return ls, err
			}
		}
	}

	units, err := oddsmath.UnitsWon(ls.AIPicks.Wins, ls.AIPicks.Losses, oddsmath.StandardPrice)
	if err != nil {
		return ls, err
	}
	ls.AIUnits = units.StringFixed(2)

	breakEven, err := oddsmath.BreakEvenPercent(oddsmath.StandardPrice)
	if err != nil {
		return ls, err
	}
	ls.BreakEvenPct = round(breakEven, 2)

	return ls, nil
}

// addPick bets the AI's side at the Vegas spread. Agreeing lines are no bet.
func addPick(r *settlement.Record, g settlement.GameResult, ai, vegas float64) error {
	market := settlement.SpreadLine{Source: settlement.SourceVegas, Value: vegas}
	side, ok, err := settlement.PickSide(settlement.SpreadLine{Source: settlement.SourceModelA, Value: ai}, market)
	if err != nil || !ok {
		return err
	}

	pick, err := settlement.SettlePick(g, side, market)
	if err != nil {
		return err
	}
	r.AddPick(pick)
	return nil
}

// mean averages the non-nil values it is given, like SQL AVG
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value(places int32) float64 {
	if m.n == 0 {
		return 0
	}
	return round(m.sum/float64(m.n), places)
}

func percent(part, whole int, places int32) float64 {
	if whole == 0 {
		return 0
	}
	return round(float64(part)/float64(whole)*100, places)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
