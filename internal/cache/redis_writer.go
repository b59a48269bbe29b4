package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	SeasonSummaryTTL = 24 * time.Hour
	HeadToHeadTTL    = 24 * time.Hour
)

// ErrMiss is returned when a key is not cached
var ErrMiss = errors.New("cache miss")

// SummaryCache holds precomputed season summaries for the API
type SummaryCache interface {
	WriteSeasonSummary(ctx context.Context, stats *models.PerformanceStats) error
	ReadSeasonSummary(ctx context.Context, season int) (*models.PerformanceStats, error)
	WriteHeadToHead(ctx context.Context, h2h *models.SeasonHeadToHead) error
	ReadHeadToHead(ctx context.Context, season int) (*models.SeasonHeadToHead, error)
	Invalidate(ctx context.Context, season int) error
}

// RedisWriter handles writing summaries to Redis
type RedisWriter struct {
	client *redis.Client
}

// NewRedisWriter creates a new Redis writer
func NewRedisWriter(client *redis.Client) *RedisWriter {
	return &RedisWriter{
		client: client,
	}
}

func summaryKey(season int) string {
	return fmt.Sprintf("settler:season:%d:summary", season)
}

func headToHeadKey(season int) string {
	return fmt.Sprintf("settler:season:%d:ai_vs_vegas", season)
}

// WriteSeasonSummary stores a season-wide performance summary
func (w *RedisWriter) WriteSeasonSummary(ctx context.Context, stats *models.PerformanceStats) error {
	return w.writeJSON(ctx, summaryKey(stats.Season), stats, SeasonSummaryTTL)
}

// ReadSeasonSummary retrieves a season summary, or ErrMiss
func (w *RedisWriter) ReadSeasonSummary(ctx context.Context, season int) (*models.PerformanceStats, error) {
	var stats models.PerformanceStats
	if err := w.readJSON(ctx, summaryKey(season), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// WriteHeadToHead stores the AI vs Vegas tally for a season
func (w *RedisWriter) WriteHeadToHead(ctx context.Context, h2h *models.SeasonHeadToHead) error {
	return w.writeJSON(ctx, headToHeadKey(h2h.Season), h2h, HeadToHeadTTL)
}

// ReadHeadToHead retrieves the AI vs Vegas tally, or ErrMiss
func (w *RedisWriter) ReadHeadToHead(ctx context.Context, season int) (*models.SeasonHeadToHead, error) {
	var h2h models.SeasonHeadToHead
	if err := w.readJSON(ctx, headToHeadKey(season), &h2h); err != nil {
		return nil, err
	}
	return &h2h, nil
}

// Invalidate drops every cached summary for a season
func (w *RedisWriter) Invalidate(ctx context.Context, season int) error {
	return w.client.Del(ctx, summaryKey(season), headToHeadKey(season)).Err()
}

func (w *RedisWriter) writeJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	return w.client.Set(ctx, key, data, ttl).Err()
}

func (w *RedisWriter) readJSON(ctx context.Context, key string, v interface{}) error {
	data, err := w.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

// Noop never stores anything; every read is a miss
type Noop struct{}

func (Noop) WriteSeasonSummary(ctx context.Context, stats *models.PerformanceStats) error {
	return nil
}

func (Noop) ReadSeasonSummary(ctx context.Context, season int) (*models.PerformanceStats, error) {
	return nil, ErrMiss
}

func (Noop) WriteHeadToHead(ctx context.Context, h2h *models.SeasonHeadToHead) error {
	return nil
}

func (Noop) ReadHeadToHead(ctx context.Context, season int) (*models.SeasonHeadToHead, error) {
	return nil, ErrMiss
}

func (Noop) Invalidate(ctx context.Context, season int) error {
	return nil
}
