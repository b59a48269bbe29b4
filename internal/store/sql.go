package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
)

// sqlStore implements Store over database/sql for any supported dialect
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// Ping checks database connectivity
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// UpsertGame inserts a game or refreshes its lines and scores
func (s *sqlStore) UpsertGame(ctx context.Context, game *models.Game) error {
	query := s.d.q(`
		INSERT INTO {games} (
			game_id, season, week, game_date, kickoff_time_utc, home_team, away_team,
			home_score, away_score, spread_line, total_line, closing_spread, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO UPDATE SET
			season = excluded.season,
			week = excluded.week,
			game_date = excluded.game_date,
			kickoff_time_utc = excluded.kickoff_time_utc,
			home_team = excluded.home_team,
			away_team = excluded.away_team,
			home_score = excluded.home_score,
			away_score = excluded.away_score,
			spread_line = excluded.spread_line,
			total_line = excluded.total_line,
			closing_spread = excluded.closing_spread,
			updated_at = excluded.updated_at
	`)

	_, err := s.db.ExecContext(ctx, query,
		game.GameID,
		game.Season,
		game.Week,
		nullString(game.GameDate),
		game.KickoffUTC,
		game.HomeTeam,
		game.AwayTeam,
		game.HomeScore,
		game.AwayScore,
		game.SpreadLine,
		game.TotalLine,
		game.ClosingSpread,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", game.GameID, err)
	}
	return nil
}

// GetGame retrieves a single game by ID
func (s *sqlStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	query := s.d.q(fmt.Sprintf(`
		SELECT game_id, season, week, %s, kickoff_time_utc, home_team, away_team,
		       home_score, away_score, spread_line, total_line, closing_spread
		FROM {games}
		WHERE game_id = ?
	`, s.d.dateExpr("game_date")))

	var g models.Game
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.GameID, &g.Season, &g.Week, &g.GameDate, &g.KickoffUTC, &g.HomeTeam, &g.AwayTeam,
		&g.HomeScore, &g.AwayScore, &g.SpreadLine, &g.TotalLine, &g.ClosingSpread,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query game %s: %w", gameID, err)
	}
	return &g, nil
}

// ApplyScoreUpdate matches a scoreboard observation to a stored game by
// teams and date, locks the closing spread near kickoff, and writes changed scores
func (s *sqlStore) ApplyScoreUpdate(ctx context.Context, update models.ScoreUpdate, lockWindow time.Duration, now time.Time) (*ScoreChange, error) {
	query := s.d.q(`
		SELECT game_id, home_score, away_score, closing_spread, kickoff_time_utc
		FROM {games}
		WHERE home_team = ? AND away_team = ? AND game_date = ?
	`)

	var stored storedScore
	err := s.db.QueryRowContext(ctx, query, update.HomeTeam, update.AwayTeam, update.GameDate).Scan(
		&stored.GameID, &stored.HomeScore, &stored.AwayScore, &stored.ClosingSpread, &stored.KickoffUTC,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &ScoreChange{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match game %s@%s %s: %w", update.AwayTeam, update.HomeTeam, update.GameDate, err)
	}

	change := &ScoreChange{GameID: stored.GameID, Found: true}
	lockSpread, writeScore := planScoreUpdate(stored, update, lockWindow, now)

	if lockSpread {
		lock := s.d.q(`UPDATE {games} SET closing_spread = ?, updated_at = ? WHERE game_id = ? AND closing_spread IS NULL`)
		if _, err := s.db.ExecContext(ctx, lock, *update.CurrentSpread, now.UTC(), stored.GameID); err != nil {
			return nil, fmt.Errorf("lock spread for %s: %w", stored.GameID, err)
		}
		change.SpreadLocked = true
	}

	if writeScore {
		scores := s.d.q(`UPDATE {games} SET home_score = ?, away_score = ?, updated_at = ? WHERE game_id = ?`)
		if _, err := s.db.ExecContext(ctx, scores, *update.HomeScore, *update.AwayScore, now.UTC(), stored.GameID); err != nil {
			return nil, fmt.Errorf("update scores for %s: %w", stored.GameID, err)
		}
		change.ScoreUpdated = true
	}

	return change, nil
}

// SavePredictions upserts one prediction per game. Results already recorded
// against a game are left untouched.
func (s *sqlStore) SavePredictions(ctx context.Context, predictions []models.Prediction) (int, error) {
	query := s.d.q(`
		INSERT INTO {predictions} (
			game_id, season, week, home_team, away_team, game_date,
			predicted_winner, win_confidence, home_win_prob, away_win_prob,
			predicted_home_score, predicted_away_score, predicted_margin,
			ai_spread, vegas_spread, vegas_total, predicted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id) DO UPDATE SET
			predicted_winner = excluded.predicted_winner,
			win_confidence = excluded.win_confidence,
			home_win_prob = excluded.home_win_prob,
			away_win_prob = excluded.away_win_prob,
			predicted_home_score = excluded.predicted_home_score,
			predicted_away_score = excluded.predicted_away_score,
			predicted_margin = excluded.predicted_margin,
			ai_spread = excluded.ai_spread,
			vegas_spread = excluded.vegas_spread,
			vegas_total = excluded.vegas_total,
			predicted_at = excluded.predicted_at
		WHERE {predictions}.result_recorded_at IS NULL
	`)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := 0
	for _, p := range predictions {
		predictedAt := p.PredictedAt
		if predictedAt.IsZero() {
			predictedAt = time.Now().UTC()
		}

		res, err := tx.ExecContext(ctx, query,
			p.GameID, p.Season, p.Week, p.HomeTeam, p.AwayTeam, nullString(p.GameDate),
			nullString(p.PredictedWinner), p.WinConfidence, p.HomeWinProb, p.AwayWinProb,
			p.PredictedHomeScore, p.PredictedAwayScore, p.PredictedMargin,
			p.AISpread, p.VegasSpread, p.VegasTotal, predictedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("save prediction for %s: %w", p.GameID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			saved += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit predictions: %w", err)
	}
	return saved, nil
}

const predictionColumns = `
	p.prediction_id, p.game_id, p.season, p.week, p.home_team, p.away_team, %s,
	COALESCE(p.predicted_winner, ''), p.win_confidence, p.home_win_prob, p.away_win_prob,
	p.predicted_home_score, p.predicted_away_score, p.predicted_margin,
	p.ai_spread, COALESCE(p.vegas_spread, g.closing_spread, g.spread_line),
	COALESCE(p.vegas_total, g.total_line), p.predicted_at`

func (s *sqlStore) predictionColumns() string {
	return fmt.Sprintf(predictionColumns, s.d.dateExpr("p.game_date"))
}

func predictionDest(p *models.Prediction) []interface{} {
	return []interface{}{
		&p.PredictionID, &p.GameID, &p.Season, &p.Week, &p.HomeTeam, &p.AwayTeam, &p.GameDate,
		&p.PredictedWinner, &p.WinConfidence, &p.HomeWinProb, &p.AwayWinProb,
		&p.PredictedHomeScore, &p.PredictedAwayScore, &p.PredictedMargin,
		&p.AISpread, &p.VegasSpread, &p.VegasTotal, &p.PredictedAt,
	}
}

// GetPrediction retrieves the prediction for a game. Vegas lines missing from
// the prediction fall back to the game's closing or opening line.
func (s *sqlStore) GetPrediction(ctx context.Context, gameID string) (*models.Prediction, error) {
	query := s.d.q(`
		SELECT ` + s.predictionColumns() + `
		FROM {predictions} p
		LEFT JOIN {games} g ON p.game_id = g.game_id
		WHERE p.game_id = ?
	`)

	var p models.Prediction
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(predictionDest(&p)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prediction for %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query prediction %s: %w", gameID, err)
	}
	return &p, nil
}

// ListPendingSettlements returns predictions whose games have both scores
// but whose results have not been recorded
func (s *sqlStore) ListPendingSettlements(ctx context.Context) ([]models.PendingSettlement, error) {
	query := s.d.q(`
		SELECT ` + s.predictionColumns() + `, g.home_score, g.away_score
		FROM {predictions} p
		JOIN {games} g ON p.game_id = g.game_id
		WHERE g.home_score IS NOT NULL
		  AND g.away_score IS NOT NULL
		  AND p.result_recorded_at IS NULL
		ORDER BY p.season, p.week, p.game_id
	`)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pending settlements: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingSettlement
	for rows.Next() {
		var ps models.PendingSettlement
		dest := append(predictionDest(&ps.Prediction), &ps.HomeScore, &ps.AwayScore)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan pending settlement: %w", err)
		}
		pending = append(pending, ps)
	}
	return pending, rows.Err()
}

// RecordResult writes a prediction's settlement. It refuses to overwrite a
// result that was already recorded.
func (s *sqlStore) RecordResult(ctx context.Context, r *models.PredictionResult) error {
	query := s.d.q(`
		UPDATE {predictions}
		SET actual_winner = ?,
		    actual_home_score = ?,
		    actual_away_score = ?,
		    actual_margin = ?,
		    win_prediction_correct = ?,
		    score_prediction_error_home = ?,
		    score_prediction_error_away = ?,
		    margin_prediction_error = ?,
		    ai_spread_result = ?,
		    vegas_spread_result = ?,
		    vegas_total_result = ?,
		    head_to_head = ?,
		    result_recorded_at = ?
		WHERE prediction_id = ? AND result_recorded_at IS NULL
	`)

	recordedAt := r.ResultRecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, query,
		r.ActualWinner,
		r.ActualHomeScore,
		r.ActualAwayScore,
		r.ActualMargin,
		r.WinCorrect,
		r.HomeScoreError,
		r.AwayScoreError,
		r.MarginError,
		nullString(string(r.AISpreadResult)),
		nullString(string(r.VegasSpreadResult)),
		nullString(string(r.VegasTotalResult)),
		nullString(string(r.HeadToHead)),
		recordedAt,
		r.PredictionID,
	)
	if err != nil {
		return fmt.Errorf("record result for prediction %d: %w", r.PredictionID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("prediction %d: %w", r.PredictionID, ErrAlreadySettled)
	}
	return nil
}

// ListSettled returns settled predictions for a season, optionally one week
func (s *sqlStore) ListSettled(ctx context.Context, season int, week *int) ([]models.SettledPrediction, error) {
	query := `
		SELECT ` + s.predictionColumns() + `,
		       p.actual_winner, p.actual_home_score, p.actual_away_score, p.actual_margin,
		       p.win_prediction_correct, p.score_prediction_error_home,
		       p.score_prediction_error_away, p.margin_prediction_error,
		       p.ai_spread_result, p.vegas_spread_result, p.vegas_total_result,
		       p.head_to_head, p.result_recorded_at
		FROM {predictions} p
		LEFT JOIN {games} g ON p.game_id = g.game_id
		WHERE p.season = ? AND p.result_recorded_at IS NOT NULL`
	args := []interface{}{season}
	if week != nil {
		query += ` AND p.week = ?`
		args = append(args, *week)
	}
	query += ` ORDER BY p.week, p.game_id`

	rows, err := s.db.QueryContext(ctx, s.d.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query settled predictions: %w", err)
	}
	defer rows.Close()

	var settled []models.SettledPrediction
	for rows.Next() {
		var sp models.SettledPrediction
		var (
			winner                     sql.NullString
			aiResult, vegasResult      sql.NullString
			totalResult, headToHead    sql.NullString
			homeScore, awayScore, diff sql.NullInt64
			correct                    sql.NullBool
		)

		dest := append(predictionDest(&sp.Prediction),
			&winner, &homeScore, &awayScore, &diff,
			&correct, &sp.Result.HomeScoreError,
			&sp.Result.AwayScoreError, &sp.Result.MarginError,
			&aiResult, &vegasResult, &totalResult,
			&headToHead, &sp.Result.ResultRecordedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan settled prediction: %w", err)
		}

		sp.Result.PredictionID = sp.PredictionID
		sp.Result.GameID = sp.GameID
		sp.Result.ActualWinner = winner.String
		sp.Result.ActualHomeScore = int(homeScore.Int64)
		sp.Result.ActualAwayScore = int(awayScore.Int64)
		sp.Result.ActualMargin = int(diff.Int64)
		sp.Result.WinCorrect = correct.Bool
		sp.Result.AISpreadResult = settlement.SpreadOutcome(aiResult.String)
		sp.Result.VegasSpreadResult = settlement.SpreadOutcome(vegasResult.String)
		sp.Result.VegasTotalResult = settlement.TotalOutcome(totalResult.String)
		sp.Result.HeadToHead = settlement.HeadToHead(headToHead.String)

		settled = append(settled, sp)
	}
	return settled, rows.Err()
}

// nullString maps an empty string to SQL NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
