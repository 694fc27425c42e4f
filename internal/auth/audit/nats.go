package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
	"github.com/nats-io/nats.go"
)

// Config holds the NATS connection settings.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// SubjectPrefix is prepended to the event type: <prefix>.<type>.
	SubjectPrefix string

	// Name identifies the connection on the server.
	Name string

	ReconnectWait time.Duration
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "auth.events"
	}
	if c.Name == "" {
		c.Name = "aixasz-auth"
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATS publishes events as JSON on <prefix>.<type>. Core NATS publishing
// is fire-and-forget; events are lost while the connection is down.
type NATS struct {
	conn   conn
	prefix string
}

func NewNATS(cfg Config, logger *slog.Logger) (*NATS, error) {
	cfg = cfg.withDefaults()

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("audit: nats disconnected", slogx.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("audit: nats reconnected", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newNATS(nc, cfg.SubjectPrefix), nil
}

func newNATS(c conn, prefix string) *NATS {
	return &NATS{conn: c, prefix: prefix}
}

func (n *NATS) Subject(eventType string) string {
	return n.prefix + "." + eventType
}

func (n *NATS) Publish(ctx context.Context, e Event) {
	stamp(ctx, &e)

	data, err := json.Marshal(e)
	if err != nil {
		slogx.FromContext(ctx).Error("audit: marshal event", "event", e.Type, slogx.Err(err))
		return
	}
	if err := n.conn.Publish(n.Subject(e.Type), data); err != nil {
		slogx.FromContext(ctx).Warn("audit: publish failed", "event", e.Type, slogx.Err(err))
	}
}

// Close flushes pending events and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
