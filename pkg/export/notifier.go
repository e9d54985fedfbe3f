package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
)

// Event announces a record status transition.
type Event struct {
	EntryID string         `json:"entry_id"`
	JobID   string         `json:"job_id,omitempty"`
	RunID   string         `json:"run_id,omitempty"`
	Status  logbook.Status `json:"status"`
	Attempt int            `json:"attempt"`
	Reason  string         `json:"reason,omitempty"`
	At      time.Time      `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, evt Event) error
	Close() error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
func (NopNotifier) Close() error                        { return nil }

// NATSNotifier publishes events as JSON on a core NATS subject.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	log     *logger.Logger
}

// NewNotifier connects to NATS when a URL is configured and otherwise returns
// a notifier that drops events.
func NewNotifier(cfg *config.ExportConfig) (Notifier, error) {
	if cfg.NATSURL == "" {
		return NopNotifier{}, nil
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("logbook-export"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.NATSURL, err)
	}

	subject := cfg.NATSSubject
	if subject == "" {
		subject = "logbook.export.status"
	}
	return &NATSNotifier{nc: nc, subject: subject, log: logger.WithComponent("notifier")}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", evt.Status, evt.EntryID, err)
	}
	n.log.Debug("Published %s for entry %s", evt.Status, evt.EntryID)
	return nil
}

func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
