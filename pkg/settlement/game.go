package settlement

import "fmt"

// Tie is reported as the winner of a drawn game
const Tie = "TIE"

// Source identifies who published a line. It never changes how a line settles.
type Source string

const (
	SourceVegas  Source = "VEGAS"
	SourceModelA Source = "MODEL_A"
	SourceModelB Source = "MODEL_B"
)

// SpreadLine is a point spread from the home team's perspective
type SpreadLine struct {
	Source Source  `json:"source"`
	Value  float64 `json:"value"`
}

// TotalLine is an over/under on the combined score
type TotalLine struct {
	Source Source  `json:"source,omitempty"`
	Value  float64 `json:"value"`
}

// GameResult is a finished game. Construct it with NewGameResult when the
// scores come from a nullable source.
type GameResult struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

// NewGameResult builds a GameResult from nullable scores. A game with either
// score missing is still scheduled and cannot be settled.
func NewGameResult(homeScore, awayScore *int) (GameResult, error) {
	if homeScore == nil {
		return GameResult{}, &InvalidInputError{Field: "home_score", Reason: "score not reported"}
	}
	if awayScore == nil {
		return GameResult{}, &InvalidInputError{Field: "away_score", Reason: "score not reported"}
	}

	g := GameResult{HomeScore: *homeScore, AwayScore: *awayScore}
	if err := g.Validate(); err != nil {
		return GameResult{}, err
	}
	return g, nil
}

// Validate rejects negative scores
func (g GameResult) Validate() error {
	if g.HomeScore < 0 {
		return &InvalidInputError{Field: "home_score", Value: float64(g.HomeScore), Reason: "must be >= 0"}
	}
	if g.AwayScore < 0 {
		return &InvalidInputError{Field: "away_score", Value: float64(g.AwayScore), Reason: "must be >= 0"}
	}
	return nil
}

// Margin is home score minus away score
func (g GameResult) Margin() int {
	return g.HomeScore - g.AwayScore
}

// Total is the combined score
func (g GameResult) Total() int {
	return g.HomeScore + g.AwayScore
}

// Winner returns the label of the winning team, or Tie
func (g GameResult) Winner(homeTeamLabel, awayTeamLabel string) string {
	switch {
	case g.HomeScore > g.AwayScore:
		return homeTeamLabel
	case g.AwayScore > g.HomeScore:
		return awayTeamLabel
	default:
		return Tie
	}
}

// SettleSpread settles one spread line against the game
func SettleSpread(g GameResult, line SpreadLine) (SpreadOutcome, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	return EvaluateSpread(float64(g.Margin()), line.Value)
}

// SettleTotal settles one total line against the game
func SettleTotal(g GameResult, line TotalLine) (TotalOutcome, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	return EvaluateTotal(float64(g.Total()), line.Value)
}

// SpreadSettlement pairs a line with its outcome
type SpreadSettlement struct {
	Line    SpreadLine    `json:"line"`
	Outcome SpreadOutcome `json:"outcome"`
}

// TotalSettlement pairs a total line with its outcome
type TotalSettlement struct {
	Line    TotalLine    `json:"line"`
	Outcome TotalOutcome `json:"outcome"`
}

// GameSettlement holds every line settled for one game
type GameSettlement struct {
	Margin  int                `json:"margin"`
	Total   int                `json:"total"`
	Spreads []SpreadSettlement `json:"spreads"`
	Totals  []TotalSettlement  `json:"totals,omitempty"`
}

// SettleGame settles each spread line, in order, and each total line.
// The first invalid line aborts the whole settlement.
func SettleGame(g GameResult, spreads []SpreadLine, totals []TotalLine) (*GameSettlement, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	result := &GameSettlement{
		Margin:  g.Margin(),
		Total:   g.Total(),
		Spreads: make([]SpreadSettlement, 0, len(spreads)),
	}

	for i, line := range spreads {
		outcome, err := SettleSpread(g, line)
		if err != nil {
			return nil, fmt.Errorf("spread %d (%s): %w", i, line.Source, err)
		}
		result.Spreads = append(result.Spreads, SpreadSettlement{Line: line, Outcome: outcome})
	}

	for i, line := range totals {
		outcome, err := SettleTotal(g, line)
		if err != nil {
			return nil, fmt.Errorf("total %d: %w", i, err)
		}
		result.Totals = append(result.Totals, TotalSettlement{Line: line, Outcome: outcome})
	}

	return result, nil
}
