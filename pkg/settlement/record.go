package settlement

import "fmt"

// Record is a win-loss-push tally against the spread
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Pushes int `json:"pushes"`
}

// AddSpread counts a cover as a win and a failed cover as a loss
func (r *Record) AddSpread(o SpreadOutcome) {
	switch o {
	case FavoriteCovered:
		r.Wins++
	case FavoriteFailed:
		r.Losses++
	case SpreadPush:
		r.Pushes++
	}
}

// AddPick counts a graded bet
func (r *Record) AddPick(p PickResult) {
	switch p {
	case PickWon:
		r.Wins++
	case PickLost:
		r.Losses++
	case PickPush:
		r.Pushes++
	}
}

// Games is the number of settled lines in the record
func (r Record) Games() int {
	return r.Wins + r.Losses + r.Pushes
}

// WinPct is the win share of decided games, in percent. Pushes are excluded.
func (r Record) WinPct() float64 {
	decided := r.Wins + r.Losses
	if decided == 0 {
		return 0
	}
	return float64(r.Wins) / float64(decided) * 100
}

func (r Record) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Pushes)
}

// TotalsRecord tallies over/under results
type TotalsRecord struct {
	Overs  int `json:"overs"`
	Unders int `json:"unders"`
	Pushes int `json:"pushes"`
}

func (r *TotalsRecord) Add(o TotalOutcome) {
	switch o {
	case Over:
		r.Overs++
	case Under:
		r.Unders++
	case TotalPush:
		r.Pushes++
	}
}

func (r TotalsRecord) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Overs, r.Unders, r.Pushes)
}
