package tail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tessro/startify/internal/logging"
)

// Header keys set on every published message.
const (
	HeaderEventType = "Startify-Event"
	// HeaderMsgID lets a JetStream stream on the subject drop duplicates.
	HeaderMsgID = nats.MsgIdHdr
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// Publisher publishes events as JSON to a NATS subject, so the voice and
// hand engines can follow playback.
type Publisher struct {
	conn    natsConn
	subject string
	logger  *slog.Logger
}

// ConnectPublisher dials url and returns a Publisher for subject. The
// connection reconnects indefinitely; publishes during an outage are
// buffered by the client.
func ConnectPublisher(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	conn, err := nats.Connect(url,
		nats.Name("startify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("publishing events", slog.String("url", url), slog.String("subject", subject))
	return newPublisher(conn, subject, logger), nil
}

func newPublisher(conn natsConn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Write implements Sink.
func (p *Publisher) Write(_ context.Context, e Event) error {
	msg, err := encodeMessage(p.subject, e)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("published event", slog.String("event", string(e.Type)), slog.String("id", e.ID))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

func encodeMessage(subject string, e Event) (*nats.Msg, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderEventType, string(e.Type))
	if e.ID != "" {
		msg.Header.Set(HeaderMsgID, e.ID)
	}
	return msg, nil
}
