package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
)

// NATSBridge relays notifications over a NATS subject
type NATSBridge struct {
	conn    *nats.Conn
	subject string
}

// NewNATSBridge creates a bridge publishing on subject
func NewNATSBridge(conn *nats.Conn, subject string) *NATSBridge {
	return &NATSBridge{conn: conn, subject: subject}
}

// Publish sends n to every subscribed process
func (b *NATSBridge) Publish(_ context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := b.conn.Publish(b.subject, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run subscribes to the subject and delivers until ctx is done
func (b *NATSBridge) Run(ctx context.Context, deliver func(Notification)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var n Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			logger.Get().Debug("Ignoring malformed notification", "subject", b.subject, "error", err)
			return
		}
		deliver(n)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return ctx.Err()
}
