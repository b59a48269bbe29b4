package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps the settlement stream; consumers only need recent history
const streamMaxLen = 10000

// Publisher emits settlement events to downstream consumers
type Publisher interface {
	PublishSettlement(ctx context.Context, event *models.SettlementEvent) error
}

// StreamPublisher publishes settlements to a Redis stream
type StreamPublisher struct {
	client *redis.Client
	stream string
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
	}
}

// PublishSettlement publishes one settled prediction
func (p *StreamPublisher) PublishSettlement(ctx context.Context, event *models.SettlementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling settlement: %w", err)
	}

	values := map[string]interface{}{
		"data":      string(data),
		"event_id":  event.EventID,
		"game_id":   event.GameID,
		"season":    event.Season,
		"week":      event.Week,
		"home_team": event.HomeTeam,
		"away_team": event.AwayTeam,
	}
	if event.AI != nil {
		values["ai_result"] = string(event.AI.Outcome)
	}
	if event.Vegas != nil {
		values["vegas_result"] = string(event.Vegas.Outcome)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
}

// Stream returns the stream key settlements are written to
func (p *StreamPublisher) Stream() string {
	return p.stream
}

// NoopPublisher discards events; used when Redis is not configured
type NoopPublisher struct{}

func (NoopPublisher) PublishSettlement(ctx context.Context, event *models.SettlementEvent) error {
	return nil
}
