// Package notify delivers evaluation invitations and reminders to whatever
// sends the actual emails. The transport is picked in configuration.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Kind string

const (
	KindInvitation Kind = "invitation"
	KindReminder   Kind = "reminder"
)

// Invitation is the message handed to the mailer for one student.
type Invitation struct {
	Kind         Kind       `json:"kind"`
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name"`
	Email        string     `json:"email"`
	CourseID     string     `json:"course_id"`
	CourseName   string     `json:"course_name"`
	CourseNumber string     `json:"course_number"`
	Link         string     `json:"link"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, inv Invitation) error
	Close() error
}

type Config struct {
	Transport    string
	NATSURL      string
	NATSSubject  string
	KafkaBrokers []string
	KafkaTopic   string
	Timeout      time.Duration
}

func New(cfg Config) (Notifier, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogNotifier(), nil
	case "nats":
		return NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject)
	case "kafka":
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.Transport)
	}
}

// EvaluationLink builds {frontend_base_url}/evaluate/{token}.
func EvaluationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/evaluate/" + url.PathEscape(token)
}
