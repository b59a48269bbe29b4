//go:build integration

package cache_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/cache"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/redis/go-redis/v9"
)

func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_URL")
	if addr == "" {
		addr = "localhost:6380"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_TEST_PASSWORD"),
		DB:       1,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestRedisWriter_SeasonSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := cache.NewRedisWriter(getTestRedisClient(t))

	if _, err := w.ReadSeasonSummary(ctx, 2025); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss before write, got %v", err)
	}

	stats := &models.PerformanceStats{
		Season:  2025,
		Overall: models.OverallStats{TotalGames: 12, CorrectPredictions: 8, WinAccuracy: 66.7},
		Versus:  models.SeasonHeadToHead{Season: 2025, AIWins: 5, VegasWins: 4, Ties: 3, TotalGames: 12},
	}
	if err := w.WriteSeasonSummary(ctx, stats); err != nil {
		t.Fatalf("WriteSeasonSummary: %v", err)
	}
	if err := w.WriteHeadToHead(ctx, &stats.Versus); err != nil {
		t.Fatalf("WriteHeadToHead: %v", err)
	}

	got, err := w.ReadSeasonSummary(ctx, 2025)
	if err != nil {
		t.Fatalf("ReadSeasonSummary: %v", err)
	}
	if got.Overall.CorrectPredictions != 8 || got.Versus.AIWins != 5 {
		t.Errorf("unexpected summary: %+v", got)
	}

	h2h, err := w.ReadHeadToHead(ctx, 2025)
	if err != nil {
		t.Fatalf("ReadHeadToHead: %v", err)
	}
	if h2h.Ties != 3 {
		t.Errorf("ties = %d, want 3", h2h.Ties)
	}

	if err := w.Invalidate(ctx, 2025); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := w.ReadHeadToHead(ctx, 2025); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expected ErrMiss after invalidate, got %v", err)
	}
}
