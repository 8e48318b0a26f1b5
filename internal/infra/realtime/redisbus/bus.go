package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
)

// Bus relays changes between API instances over a Redis Pub/Sub channel.
// Publish sends to Redis; Run feeds what arrives into the local sink, so an
// instance also receives its own changes through Redis.
type Bus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func New(client *redis.Client, channel string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{client: client, channel: channel, logger: logger}
}

func (b *Bus) Publish(ctx context.Context, c realtime.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Run blocks until ctx is cancelled, forwarding every message to sink.
func (b *Bus) Run(ctx context.Context, sink realtime.Publisher) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	b.logger.Info("subscribed to change channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(ctx, msg.Payload, sink)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, payload string, sink realtime.Publisher) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while delivering change", zap.Any("panic", r))
		}
	}()

	var c realtime.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		b.logger.Warn("dropping malformed change", zap.Error(err))
		return
	}
	if err := sink.Publish(ctx, c); err != nil {
		b.logger.Error("failed to deliver change", zap.String("topic", c.Topic().String()), zap.Error(err))
	}
}

var _ realtime.Publisher = (*Bus)(nil)
