package notify

import (
	"context"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/models"
)

// LogNotifier only logs. Used in development when no mailer is attached.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, inv Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link := inv.Link
	if i := strings.LastIndex(link, "/"); i >= 0 {
		link = link[:i+1] + models.RedactToken(link[i+1:])
	}
	logger.Info.Printf("[%s] %s <%s> for %s: %s", inv.Kind, inv.StudentName, inv.Email, inv.CourseNumber, link)
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
