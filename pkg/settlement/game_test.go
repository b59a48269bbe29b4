package settlement_test

import (
	"errors"
	"math"
	"testing"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
)

func intPtr(v int) *int { return &v }

func TestNewGameResult(t *testing.T) {
	g, err := settlement.NewGameResult(intPtr(27), intPtr(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Margin() != 7 {
		t.Errorf("Margin() = %d, want 7", g.Margin())
	}
	if g.Total() != 47 {
		t.Errorf("Total() = %d, want 47", g.Total())
	}
}

func TestNewGameResult_MissingScore(t *testing.T) {
	tests := []struct {
		name string
		home *int
		away *int
	}{
		{"home missing", nil, intPtr(10)},
		{"away missing", intPtr(10), nil},
		{"both missing", nil, nil},
		{"negative score", intPtr(-1), intPtr(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := settlement.NewGameResult(tt.home, tt.away); !errors.Is(err, settlement.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGameResult_Winner(t *testing.T) {
	tests := []struct {
		home, away int
		want       string
	}{
		{24, 17, "KC"},
		{10, 31, "DEN"},
		{20, 20, settlement.Tie},
	}
	for _, tt := range tests {
		g := settlement.GameResult{HomeScore: tt.home, AwayScore: tt.away}
		if got := g.Winner("KC", "DEN"); got != tt.want {
			t.Errorf("Winner(%d-%d) = %s, want %s", tt.home, tt.away, got, tt.want)
		}
	}
}

func TestSettleGame(t *testing.T) {
	g := settlement.GameResult{HomeScore: 31, AwayScore: 21}

	result, err := settlement.SettleGame(g,
		[]settlement.SpreadLine{
			{Source: settlement.SourceVegas, Value: -6.5},
			{Source: settlement.SourceModelA, Value: -10},
			{Source: settlement.SourceModelB, Value: -13.5},
		},
		[]settlement.TotalLine{{Source: settlement.SourceVegas, Value: 45.5}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []settlement.SpreadOutcome{
		settlement.FavoriteCovered,
		settlement.SpreadPush,
		settlement.FavoriteFailed,
	}
	if len(result.Spreads) != len(want) {
		t.Fatalf("got %d spread settlements, want %d", len(result.Spreads), len(want))
	}
	for i, w := range want {
		if result.Spreads[i].Outcome != w {
			t.Errorf("spread %d (%s) = %s, want %s", i, result.Spreads[i].Line.Source, result.Spreads[i].Outcome, w)
		}
	}

	if len(result.Totals) != 1 || result.Totals[0].Outcome != settlement.Over {
		t.Errorf("totals = %+v, want one OVER", result.Totals)
	}
	if result.Margin != 10 || result.Total != 52 {
		t.Errorf("margin/total = %d/%d, want 10/52", result.Margin, result.Total)
	}
}

func TestSettleGame_InvalidLine(t *testing.T) {
	g := settlement.GameResult{HomeScore: 14, AwayScore: 10}
	_, err := settlement.SettleGame(g, []settlement.SpreadLine{
		{Source: settlement.SourceVegas, Value: -3},
		{Source: settlement.SourceModelA, Value: math.NaN()},
	}, nil)
	if !errors.Is(err, settlement.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
