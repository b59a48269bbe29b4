package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/config"
)

var envKeys = []string{
	"SERVER_ADDR", "CORS_ORIGINS", "DATABASE_DRIVER", "DATABASE_DSN", "SQLITE_PATH",
	"REDIS_URL", "REDIS_PASSWORD", "SETTLEMENT_POLL_INTERVAL", "SETTLEMENT_STREAM",
	"RECAP_CRON", "DEFAULT_SEASON", "ESPN_ENABLED", "ESPN_BASE_URL", "SPREAD_LOCK_WINDOW",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":8086" {
		t.Errorf("Expected default server addr ':8086', got '%s'", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected default driver 'postgres', got '%s'", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		t.Error("Expected a default postgres DSN")
	}
	if cfg.Redis.URL != "" {
		t.Errorf("Expected Redis disabled by default, got '%s'", cfg.Redis.URL)
	}
	if cfg.Settlement.PollInterval != 5*time.Minute {
		t.Errorf("Expected default poll interval 5m, got %v", cfg.Settlement.PollInterval)
	}
	if cfg.Settlement.Stream != "settlements.americanfootball_nfl" {
		t.Errorf("Expected default stream, got '%s'", cfg.Settlement.Stream)
	}
	if cfg.Settlement.RecapCron != "0 0 9 * * 2" {
		t.Errorf("Expected default recap cron, got '%s'", cfg.Settlement.RecapCron)
	}
	if cfg.ESPN.LockWindow != time.Hour {
		t.Errorf("Expected default lock window 1h, got %v", cfg.ESPN.LockWindow)
	}
	if cfg.ESPN.Enabled {
		t.Error("Expected ESPN ingestion disabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/settler.db")
	t.Setenv("REDIS_URL", "redis.example.com:6379")
	t.Setenv("SETTLEMENT_POLL_INTERVAL", "30s")
	t.Setenv("DEFAULT_SEASON", "2024")
	t.Setenv("ESPN_ENABLED", "true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected server addr ':9090', got '%s'", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Expected two trimmed CORS origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/settler.db" {
		t.Errorf("Expected sqlite at /tmp/settler.db, got %s at %s", cfg.Database.Driver, cfg.Database.SQLitePath)
	}
	if cfg.Redis.URL != "redis.example.com:6379" {
		t.Errorf("Expected redis URL override, got '%s'", cfg.Redis.URL)
	}
	if cfg.Settlement.PollInterval != 30*time.Second {
		t.Errorf("Expected poll interval 30s, got %v", cfg.Settlement.PollInterval)
	}
	if cfg.Settlement.Season != 2024 {
		t.Errorf("Expected season 2024, got %d", cfg.Settlement.Season)
	}
	if !cfg.ESPN.Enabled {
		t.Error("Expected ESPN ingestion enabled")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settler.yaml")
	content := `
server:
  addr: ":7070"
database:
  driver: sqlite
  sqlite_path: local.db
settlement:
  poll_interval: 2m
  season: 2023
espn:
  enabled: true
  lock_window: 90m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// env still wins over the file
	t.Setenv("SERVER_ADDR", ":7171")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":7171" {
		t.Errorf("Expected env override ':7171', got '%s'", cfg.Server.Addr)
	}
	if cfg.Database.SQLitePath != "local.db" {
		t.Errorf("Expected sqlite path 'local.db', got '%s'", cfg.Database.SQLitePath)
	}
	if cfg.Settlement.PollInterval != 2*time.Minute {
		t.Errorf("Expected poll interval 2m, got %v", cfg.Settlement.PollInterval)
	}
	if cfg.Settlement.Season != 2023 {
		t.Errorf("Expected season 2023, got %d", cfg.Settlement.Season)
	}
	if cfg.ESPN.LockWindow != 90*time.Minute {
		t.Errorf("Expected lock window 90m, got %v", cfg.ESPN.LockWindow)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	clearEnv(t)

	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	if _, err := config.Load(""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSeasonAt(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Settlement.Season != 0 {
		t.Fatalf("Expected unpinned season by default, got %d", cfg.Settlement.Season)
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"regular season", time.Date(2025, time.October, 12, 0, 0, 0, 0, time.UTC), 2025},
		{"playoffs roll back", time.Date(2026, time.January, 18, 0, 0, 0, 0, time.UTC), 2025},
		{"offseason rolls over", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), 2026},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Settlement.SeasonAt(tt.now); got != tt.want {
				t.Errorf("SeasonAt(%s) = %d, want %d", tt.now.Format("2006-01-02"), got, tt.want)
			}
		})
	}

	pinned := config.SettlementConfig{Season: 2023}
	if got := pinned.SeasonAt(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)); got != 2023 {
		t.Errorf("pinned SeasonAt = %d, want 2023", got)
	}
}
