package settlement

import "math"

// SpreadOutcome is the settlement of one point spread against a final score
type SpreadOutcome string

const (
	FavoriteCovered SpreadOutcome = "FAVORITE_COVERED"
	FavoriteFailed  SpreadOutcome = "FAVORITE_FAILED"
	SpreadPush      SpreadOutcome = "PUSH"
)

// Side identifies one team of a matchup
type Side string

const (
	Home Side = "home"
	Away Side = "away"
)

// FavoredSide returns the side a home-perspective spread favors.
// Only a strictly negative spread favors the home team, so a pick'em (0)
// nominally favors the away team.
func FavoredSide(spreadValue float64) Side {
	if spreadValue < 0 {
		return Home
	}
	return Away
}

// EvaluateSpread settles a home-perspective spread against the final margin
// (home score minus away score).
//
// The favorite covers only when it wins by strictly more than the spread
// magnitude. A margin that lands exactly on the number is a push.
func EvaluateSpread(actualMargin, spreadValue float64) (SpreadOutcome, error) {
	if err := requireFinite("actual_margin", actualMargin); err != nil {
		return "", err
	}
	if err := requireFinite("spread", spreadValue); err != nil {
		return "", err
	}

	if actualMargin+spreadValue == 0 {
		return SpreadPush, nil
	}

	magnitude := math.Abs(spreadValue)

	var covered bool
	if FavoredSide(spreadValue) == Home {
		covered = actualMargin > magnitude
	} else {
		covered = actualMargin < -magnitude
	}

	if covered {
		return FavoriteCovered, nil
	}
	return FavoriteFailed, nil
}

// Covered reports whether the favorite covered. Pushes are not covers.
func (o SpreadOutcome) Covered() bool {
	return o == FavoriteCovered
}

// Symbol is the badge shown next to a settled line
func (o SpreadOutcome) Symbol() string {
	switch o {
	case FavoriteCovered:
		return "✓"
	case FavoriteFailed:
		return "✗"
	case SpreadPush:
		return "PUSH"
	default:
		return ""
	}
}
