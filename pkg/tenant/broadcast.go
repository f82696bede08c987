package tenant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/trainkit/pkg/logger"
)

// DefaultClearChannel is the pub/sub channel carrying cache clear notices.
const DefaultClearChannel = "trainkit:tenant-cache:clear"

// Broadcaster tells other instances to drop their tenant caches.
type Broadcaster interface {
	Broadcast(ctx context.Context) error
}

// LocalClearer is implemented by Resolver.
type LocalClearer interface {
	ClearLocal(ctx context.Context)
}

// RedisBroadcaster fans cache clears out over Redis pub/sub. Each instance
// publishes its own id so it can skip the echo of its own clears.
type RedisBroadcaster struct {
	client   redis.UniversalClient
	channel  string
	instance string
	logger   *slog.Logger
}

// NewRedisBroadcaster creates a broadcaster on channel. An empty channel
// means DefaultClearChannel.
func NewRedisBroadcaster(client redis.UniversalClient, channel string, log *slog.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultClearChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisBroadcaster{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		logger:   log,
	}
}

// Broadcast publishes a clear notice.
func (b *RedisBroadcaster) Broadcast(ctx context.Context) error {
	if err := b.client.Publish(ctx, b.channel, b.instance).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Listen subscribes to the clear channel and calls c.ClearLocal for every
// notice published by another instance. It blocks until ctx is done.
func (b *RedisBroadcaster) Listen(ctx context.Context, c LocalClearer) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == b.instance {
				continue
			}
			b.logger.DebugContext(ctx, "tenant cache clear received",
				logger.Component("tenant"),
				slog.String("from", msg.Payload),
			)
			c.ClearLocal(ctx)
		}
	}
}
