package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

// OpportunityBus publishes detected opportunities as JSON over Redis
// Pub/Sub so an execution process (or anything else) can consume them
// without coupling to this one.
type OpportunityBus struct {
	rdb     *redis.Client
	channel string
}

// NewOpportunityBus creates a bus publishing on the given channel.
func NewOpportunityBus(c *Client, channel string) *OpportunityBus {
	return &OpportunityBus{rdb: c.Underlying(), channel: channel}
}

// Record implements domain.OpportunitySink.
func (b *OpportunityBus) Record(ctx context.Context, opp domain.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity %s: %w", opp.ID, err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.channel, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OpportunitySink = (*OpportunityBus)(nil)
