package notify

import (
	"context"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/metrics"
)

type Result struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher sends a batch one invitation at a time. Each call gets its own
// timeout and the whole batch is bounded too; whatever is left when the batch
// deadline passes is reported as failed.
type Dispatcher struct {
	Notifier     Notifier
	CallTimeout  time.Duration
	BatchTimeout time.Duration
}

func (d *Dispatcher) Send(ctx context.Context, invitations []Invitation) []Result {
	if d.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.BatchTimeout)
		defer cancel()
	}

	results := make([]Result, 0, len(invitations))
	for _, inv := range invitations {
		res := Result{StudentID: inv.StudentID, Name: inv.StudentName, Email: inv.Email}

		if err := ctx.Err(); err != nil {
			res.Error = "notification batch timed out"
		} else if err := d.notify(ctx, inv); err != nil {
			logger.Error.Printf("Failed to send %s to %s: %v", inv.Kind, inv.Email, err)
			res.Error = err.Error()
		} else {
			res.Sent = true
		}

		outcome := "sent"
		if !res.Sent {
			outcome = "failed"
		}
		metrics.NotificationsTotal.WithLabelValues(string(inv.Kind), outcome).Inc()
		results = append(results, res)
	}
	return results
}

func (d *Dispatcher) notify(ctx context.Context, inv Invitation) error {
	if d.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.CallTimeout)
		defer cancel()
	}
	return d.Notifier.Notify(ctx, inv)
}
