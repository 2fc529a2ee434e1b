package notify

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mentora/core/duel"
)

// Channel is the pub/sub channel duel events are published to.
const Channel = "duel-events"

// RedisNotifier publishes events for the realtime gateway to pick up.
type RedisNotifier struct {
	client redis.UniversalClient
}

var _ duel.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev duel.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return errors.Wrap(err, "publishing event")
	}
	return nil
}
