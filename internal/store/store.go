package store

import (
	"context"
	"errors"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
)

var (
	// ErrNotFound is returned when a game or prediction does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadySettled is returned when results were already recorded for a prediction
	ErrAlreadySettled = errors.New("prediction already settled")
)

// Store defines the persistence operations the settler and API need
type Store interface {
	Ping(ctx context.Context) error
	UpsertGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	ApplyScoreUpdate(ctx context.Context, update models.ScoreUpdate, lockWindow time.Duration, now time.Time) (*ScoreChange, error)
	SavePredictions(ctx context.Context, predictions []models.Prediction) (int, error)
	GetPrediction(ctx context.Context, gameID string) (*models.Prediction, error)
	ListPendingSettlements(ctx context.Context) ([]models.PendingSettlement, error)
	RecordResult(ctx context.Context, result *models.PredictionResult) error
	ListSettled(ctx context.Context, season int, week *int) ([]models.SettledPrediction, error)
	Close() error
}

// ScoreChange reports what a scoreboard observation changed
type ScoreChange struct {
	GameID       string
	Found        bool
	ScoreUpdated bool
	SpreadLocked bool
}

// storedScore is the subset of a game row a scoreboard update is compared against
type storedScore struct {
	GameID        string
	HomeScore     *int
	AwayScore     *int
	ClosingSpread *float64
	KickoffUTC    *time.Time
}

// planScoreUpdate decides which columns an observation should touch.
// A spread is locked once, inside lockWindow of kickoff, and only when the
// scoreboard carries one. Scores are written only when both are present and
// differ from what is stored.
func planScoreUpdate(stored storedScore, update models.ScoreUpdate, lockWindow time.Duration, now time.Time) (lockSpread, writeScore bool) {
	if stored.ClosingSpread == nil && update.CurrentSpread != nil {
		kickoff := stored.KickoffUTC
		if kickoff == nil && !update.KickoffUTC.IsZero() {
			kickoff = &update.KickoffUTC
		}
		if kickoff != nil && !now.Before(kickoff.Add(-lockWindow)) {
			lockSpread = true
		}
	}

	if update.HomeScore != nil && update.AwayScore != nil {
		writeScore = !sameScore(stored.HomeScore, update.HomeScore) || !sameScore(stored.AwayScore, update.AwayScore)
	}

	return lockSpread, writeScore
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
