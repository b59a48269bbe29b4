package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	games:       "games",
	predictions: "ml_predictions",
	dateExpr: func(col string) string {
		return fmt.Sprintf("COALESCE(%s, '')", col)
	},
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id          TEXT PRIMARY KEY,
		season           INTEGER NOT NULL,
		week             INTEGER NOT NULL,
		game_date        TEXT,
		kickoff_time_utc TIMESTAMP,
		home_team        TEXT NOT NULL,
		away_team        TEXT NOT NULL,
		home_score       INTEGER,
		away_score       INTEGER,
		spread_line      REAL,
		total_line       REAL,
		closing_spread   REAL,
		updated_at       TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_matchup ON games(home_team, away_team, game_date)`,
	`CREATE TABLE IF NOT EXISTS ml_predictions (
		prediction_id               INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id                     TEXT NOT NULL UNIQUE,
		season                      INTEGER NOT NULL,
		week                        INTEGER NOT NULL,
		home_team                   TEXT NOT NULL,
		away_team                   TEXT NOT NULL,
		game_date                   TEXT,
		predicted_winner            TEXT,
		win_confidence              REAL,
		home_win_prob               REAL,
		away_win_prob               REAL,
		predicted_home_score        REAL,
		predicted_away_score        REAL,
		predicted_margin            REAL,
		ai_spread                   REAL,
		vegas_spread                REAL,
		vegas_total                 REAL,
		actual_winner               TEXT,
		actual_home_score           INTEGER,
		actual_away_score           INTEGER,
		actual_margin               INTEGER,
		win_prediction_correct      BOOLEAN,
		score_prediction_error_home REAL,
		score_prediction_error_away REAL,
		margin_prediction_error     REAL,
		ai_spread_result            TEXT,
		vegas_spread_result         TEXT,
		vegas_total_result          TEXT,
		head_to_head                TEXT,
		predicted_at                TIMESTAMP NOT NULL,
		result_recorded_at          TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ml_predictions_season_week ON ml_predictions(season, week)`,
}

// NewSQLite opens (or creates) a SQLite-backed store at path
func NewSQLite(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one writer; avoids SQLITE_BUSY between the settler and the API
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(ctx, db, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlStore{db: db, d: sqliteDialect}, nil
}
