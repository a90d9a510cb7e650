package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/niloyhakimai/medistore-client/pkg/logger"
	pkgredis "github.com/niloyhakimai/medistore-client/pkg/redis"
)

// RedisBridge relays notifications over a Redis pub/sub channel
type RedisBridge struct {
	client  *pkgredis.Client
	channel string
}

// NewRedisBridge creates a bridge publishing on channel
func NewRedisBridge(client *pkgredis.Client, channel string) *RedisBridge {
	return &RedisBridge{client: client, channel: channel}
}

// Publish sends n to every subscribed process
func (r *RedisBridge) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run subscribes to the channel and delivers until ctx is done
func (r *RedisBridge) Run(ctx context.Context, deliver func(Notification)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				logger.Get().Debug("Ignoring malformed notification", "channel", r.channel, "error", err)
				continue
			}
			deliver(n)
		}
	}
}
