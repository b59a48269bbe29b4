package settlement

import "math"

// HeadToHead names which line fared better on a game
type HeadToHead string

const (
	ModelBetter  HeadToHead = "AI"
	MarketBetter HeadToHead = "VEGAS"
	Even         HeadToHead = "TIE"
)

// CompareLines scores a model spread against a market spread on one game.
// Each line scores a point when its favorite covered; a push scores nothing.
func CompareLines(g GameResult, model, market SpreadLine) (HeadToHead, error) {
	modelOutcome, err := SettleSpread(g, model)
	if err != nil {
		return "", err
	}
	marketOutcome, err := SettleSpread(g, market)
	if err != nil {
		return "", err
	}

	switch {
	case modelOutcome.Covered() && !marketOutcome.Covered():
		return ModelBetter, nil
	case !modelOutcome.Covered() && marketOutcome.Covered():
		return MarketBetter, nil
	default:
		return Even, nil
	}
}

// Closer reports which spread landed nearer the actual result. A spread of s
// predicts a home margin of -s.
func Closer(g GameResult, model, market SpreadLine) (HeadToHead, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	if err := requireFinite("model_spread", model.Value); err != nil {
		return "", err
	}
	if err := requireFinite("market_spread", market.Value); err != nil {
		return "", err
	}

	actual := float64(g.Margin())
	modelErr := math.Abs(-model.Value - actual)
	marketErr := math.Abs(-market.Value - actual)

	switch {
	case modelErr < marketErr:
		return ModelBetter, nil
	case marketErr < modelErr:
		return MarketBetter, nil
	default:
		return Even, nil
	}
}

// PickResult grades a bet placed on one side at a market spread
type PickResult string

const (
	PickWon  PickResult = "WIN"
	PickLost PickResult = "LOSS"
	PickPush PickResult = "PUSH"
)

// PickSide returns the side a model backs when it can only bet at the market
// line. A model spread below the market rates the home team higher, so it
// takes home; above the market it takes away. ok is false when the lines agree.
func PickSide(model, market SpreadLine) (side Side, ok bool, err error) {
	if err := requireFinite("model_spread", model.Value); err != nil {
		return "", false, err
	}
	if err := requireFinite("market_spread", market.Value); err != nil {
		return "", false, err
	}

	switch {
	case model.Value < market.Value:
		return Home, true, nil
	case model.Value > market.Value:
		return Away, true, nil
	default:
		return "", false, nil
	}
}

// SettlePick grades a bet on side at the market spread
func SettlePick(g GameResult, side Side, market SpreadLine) (PickResult, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	if err := requireFinite("market_spread", market.Value); err != nil {
		return "", err
	}

	// home-side cover margin; the away bet wins exactly when it is negative
	cover := float64(g.Margin()) + market.Value
	if side == Away {
		cover = -cover
	}

	switch {
	case cover > 0:
		return PickWon, nil
	case cover < 0:
		return PickLost, nil
	default:
		return PickPush, nil
	}
}
