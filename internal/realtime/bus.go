package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying workshop events.
const Channel = "workshop.events"

// Bus publishes events through Redis so every web process (and the worker)
// reaches all connected browsers. Without a Redis client events go straight
// to the local hub.
type Bus struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewBus wires a bus. client may be nil.
func NewBus(client *redis.Client, hub *Hub, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{client: client, hub: hub, logger: logger}
}

// Publish sends evt to all subscribers.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if b == nil {
		return nil
	}
	if b.client == nil {
		if b.hub != nil {
			b.hub.Broadcast(evt)
		}
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Relay subscribes to the channel and forwards events to the local hub until
// ctx is cancelled. ready, when non-nil, is closed once the subscription is active.
func (b *Bus) Relay(ctx context.Context, ready chan<- struct{}) error {
	if b == nil || b.client == nil || b.hub == nil {
		if ready != nil {
			close(ready)
		}
		<-ctx.Done()
		return nil
	}
	sub := b.client.Subscribe(ctx, Channel)
	defer func() {
		_ = sub.Close()
	}()
	if _, err := sub.Receive(ctx); err != nil {
		if ready != nil {
			close(ready)
		}
		return fmt.Errorf("realtime: subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("realtime event dropped", slog.Any("error", err))
				continue
			}
			b.hub.Broadcast(evt)
		}
	}
}
