package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"commute.trackapp.dev/internal/logging"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher publishes each event on "<prefix>.<type>", e.g.
// commute.trip.started.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	logger := slog.Default().With(slog.String("component", "events_nats"))
	nc, err := nats.Connect(url,
		nats.Name("commute-api"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.LogOperation(logger, "nats_disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.LogOperation(logger, "nats_reconnected", slog.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logging.LogOperation(logger, "nats_closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Subject(t Type) string {
	parts := []string{}
	if p.prefix != "" {
		parts = append(parts, subjectToken(p.prefix))
	}
	for _, part := range strings.Split(string(t), ".") {
		parts = append(parts, subjectToken(part))
	}
	return strings.Join(parts, ".")
}

func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(ev.Type), b)
}

func (p *NATSPublisher) Close() error {
	err := p.conn.Drain()
	p.conn.Close()
	return err
}

// subjectToken makes s usable as a single NATS subject token.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
