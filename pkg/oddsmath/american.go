package oddsmath

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StandardPrice is the customary price on both sides of a spread or total
const StandardPrice = -110

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -110 → Decimal 1.909
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > -100 && american < 100 {
		return 0, fmt.Errorf("invalid American odds %d: magnitude must be >= 100", american)
	}

	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-american)) + 1.0, nil
}

// ImpliedProbability converts American odds to the implied win probability
func ImpliedProbability(american int) (float64, error) {
	dec, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / dec, nil
}

// BreakEvenPercent is the win rate, in percent, needed to break even at a price.
// At -110 this is 52.38%.
func BreakEvenPercent(american int) (float64, error) {
	p, err := ImpliedProbability(american)
	if err != nil {
		return 0, err
	}
	return p * 100, nil
}

// ProfitPerUnit is the profit from a one-unit winning stake at a price.
// -110 pays 0.9091 units, +150 pays 1.5.
func ProfitPerUnit(american int) (decimal.Decimal, error) {
	if _, err := AmericanToDecimal(american); err != nil {
		return decimal.Zero, err
	}

	hundred := decimal.NewFromInt(100)
	if american > 0 {
		return decimal.NewFromInt(int64(american)).Div(hundred), nil
	}
	return hundred.Div(decimal.NewFromInt(int64(-american))), nil
}

// UnitsWon is the net result of flat one-unit stakes on a record at one price.
// Pushes return the stake and do not move the total. Rounded to 2 places.
func UnitsWon(wins, losses int, american int) (decimal.Decimal, error) {
	if wins < 0 || losses < 0 {
		return decimal.Zero, fmt.Errorf("invalid record %d-%d: counts must be >= 0", wins, losses)
	}

	perWin, err := ProfitPerUnit(american)
	if err != nil {
		return decimal.Zero, err
	}

	won := perWin.Mul(decimal.NewFromInt(int64(wins)))
	lost := decimal.NewFromInt(int64(losses))
	return won.Sub(lost).Round(2), nil
}
