package settlement

// TotalOutcome is the settlement of an over/under line
type TotalOutcome string

const (
	Over      TotalOutcome = "OVER"
	Under     TotalOutcome = "UNDER"
	TotalPush TotalOutcome = "PUSH"
)

// EvaluateTotal classifies the combined final score against a total line.
// Equality is exact; there is no tolerance band.
func EvaluateTotal(actualTotal, totalLine float64) (TotalOutcome, error) {
	if err := requireFinite("actual_total", actualTotal); err != nil {
		return "", err
	}
	if err := requireFinite("total_line", totalLine); err != nil {
		return "", err
	}

	switch {
	case actualTotal == totalLine:
		return TotalPush, nil
	case actualTotal > totalLine:
		return Over, nil
	default:
		return Under, nil
	}
}
