package publisher_test

import (
	"context"
	"testing"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/publisher"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
)

func TestNoopPublisher(t *testing.T) {
	var p publisher.Publisher = publisher.NoopPublisher{}
	if err := p.PublishSettlement(context.Background(), &models.SettlementEvent{GameID: "g"}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
