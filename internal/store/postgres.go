package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	games:       "hcl.games",
	predictions: "hcl.ml_predictions",
	numbered:    true,
	dateExpr: func(col string) string {
		return fmt.Sprintf("COALESCE(TO_CHAR(%s, 'YYYY-MM-DD'), '')", col)
	},
}

var postgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS hcl`,
	`CREATE TABLE IF NOT EXISTS hcl.games (
		game_id          TEXT PRIMARY KEY,
		season           INT NOT NULL,
		week             INT NOT NULL,
		game_date        DATE,
		kickoff_time_utc TIMESTAMPTZ,
		home_team        TEXT NOT NULL,
		away_team        TEXT NOT NULL,
		home_score       INT,
		away_score       INT,
		spread_line      DOUBLE PRECISION,
		total_line       DOUBLE PRECISION,
		closing_spread   DOUBLE PRECISION,
		updated_at       TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS hcl.ml_predictions (
		prediction_id               SERIAL PRIMARY KEY,
		game_id                     TEXT NOT NULL UNIQUE,
		season                      INT NOT NULL,
		week                        INT NOT NULL,
		home_team                   TEXT NOT NULL,
		away_team                   TEXT NOT NULL,
		game_date                   DATE,
		predicted_winner            TEXT,
		win_confidence              DOUBLE PRECISION,
		home_win_prob               DOUBLE PRECISION,
		away_win_prob               DOUBLE PRECISION,
		predicted_home_score        DOUBLE PRECISION,
		predicted_away_score        DOUBLE PRECISION,
		predicted_margin            DOUBLE PRECISION,
		ai_spread                   DOUBLE PRECISION,
		vegas_spread                DOUBLE PRECISION,
		vegas_total                 DOUBLE PRECISION,
		actual_winner               TEXT,
		actual_home_score           INT,
		actual_away_score           INT,
		actual_margin               INT,
		win_prediction_correct      BOOLEAN,
		score_prediction_error_home DOUBLE PRECISION,
		score_prediction_error_away DOUBLE PRECISION,
		margin_prediction_error     DOUBLE PRECISION,
		predicted_at                TIMESTAMP NOT NULL DEFAULT NOW(),
		result_recorded_at          TIMESTAMP
	)`,
	// settlement columns added after the tracking table first shipped
	`ALTER TABLE hcl.ml_predictions ADD COLUMN IF NOT EXISTS ai_spread_result TEXT`,
	`ALTER TABLE hcl.ml_predictions ADD COLUMN IF NOT EXISTS vegas_spread_result TEXT`,
	`ALTER TABLE hcl.ml_predictions ADD COLUMN IF NOT EXISTS vegas_total_result TEXT`,
	`ALTER TABLE hcl.ml_predictions ADD COLUMN IF NOT EXISTS head_to_head TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_ml_predictions_season_week ON hcl.ml_predictions(season, week)`,
	`CREATE INDEX IF NOT EXISTS idx_ml_predictions_game_date ON hcl.ml_predictions(game_date)`,
}

// NewPostgres opens a Postgres-backed store and ensures the schema exists
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db, postgresSchema); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlStore{db: db, d: postgresDialect}, nil
}

func migrate(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			preview := stmt
			if len(preview) > 40 {
				preview = preview[:40]
			}
			return fmt.Errorf("migrate %q: %w", preview, err)
		}
	}
	return nil
}
