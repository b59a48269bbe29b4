package settlement

import (
	"fmt"
	"math"
	"strconv"
)

// Favorite is the presentation form of a spread, e.g. "HOU by 6.1"
type Favorite struct {
	Team      string  `json:"team"`
	Side      Side    `json:"side"`
	Magnitude float64 `json:"magnitude"`
	PickEm    bool    `json:"pick_em"`
}

// DescribeFavorite returns the favored team's label and the absolute spread
func DescribeFavorite(spreadValue float64, homeTeamLabel, awayTeamLabel string) (Favorite, error) {
	if err := requireFinite("spread", spreadValue); err != nil {
		return Favorite{}, err
	}

	side := FavoredSide(spreadValue)
	team := awayTeamLabel
	if side == Home {
		team = homeTeamLabel
	}

	return Favorite{
		Team:      team,
		Side:      side,
		Magnitude: math.Abs(spreadValue),
		PickEm:    spreadValue == 0,
	}, nil
}

func (f Favorite) String() string {
	if f.PickEm {
		return fmt.Sprintf("%s PK", f.Team)
	}
	return fmt.Sprintf("%s by %s", f.Team, strconv.FormatFloat(f.Magnitude, 'f', -1, 64))
}

// FormatSpread renders a home-perspective spread the way a line is printed:
// "PK" for zero, a leading "+" for positive values.
func FormatSpread(spreadValue float64) string {
	if spreadValue == 0 {
		return "PK"
	}
	s := strconv.FormatFloat(spreadValue, 'f', 1, 64)
	if spreadValue > 0 {
		return "+" + s
	}
	return s
}
