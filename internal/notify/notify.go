// Package notify publishes a summary of each applied reconciliation run.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "polycrystal.runs"

// Summary is the message body published after a run.
type Summary struct {
	RunID     string   `json:"run_id"`
	Installed []string `json:"installed"`
	Removed   []string `json:"removed"`
	Outcome   string   `json:"outcome"`
}

// Publisher delivers run summaries.
type Publisher interface {
	Publish(ctx context.Context, s Summary) error
	Close() error
}

// Noop discards every summary.
type Noop struct{}

func (Noop) Publish(context.Context, Summary) error { return nil }
func (Noop) Close() error                           { return nil }

// conn is the subset of *nats.Conn used here.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSPublisher publishes summaries on a core NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
	flush   time.Duration
}

// NewNATSPublisher connects to url and returns a publisher for subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("polycrystal"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, errors.NotifyError("failed to connect to NATS").WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Debug("NATS publisher connected", "url", url, "subject", subject)
	return newPublisher(nc, subject), nil
}

func newPublisher(c conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, flush: 2 * time.Second}
}

// Publish marshals s and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, s Summary) error {
	if s.Installed == nil {
		s.Installed = []string{}
	}
	if s.Removed == nil {
		s.Removed = []string{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return errors.NotifyError("failed to marshal run summary").WithCause(err).Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.NotifyError("failed to publish run summary").WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}

	timeout := p.flush
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return errors.NotifyError("failed to flush run summary").WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	slog.Debug("Published run summary", logfields.RunID(s.RunID), logfields.Outcome(s.Outcome))
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
