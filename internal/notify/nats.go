package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shrimpsizemoose/trekker/logger"
)

const defaultFlushTimeout = 5 * time.Second

type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("semla"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info.Printf("NATS notifier initialized, url=%s subject=%s", url, subject)

	return &NATSNotifier{
		conn:    nc,
		subject: subject,
	}, nil
}

// Notify publishes inv and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Notify(ctx context.Context, inv Invitation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish to nats: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
