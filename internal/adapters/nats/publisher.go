package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/staymap/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure the catalog stream exists
	cfg := nats.StreamConfig{
		Name:      "CATALOG_EVENTS",
		Subjects:  []string{SubjectPropertyAll},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; update it instead
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishPropertyEvent publishes a catalog change on catalog.property.<city>.<kind>.
func (p *Publisher) PublishPropertyEvent(ctx context.Context, event *domain.PropertyEvent) error {
	data, err := EncodePropertyEvent(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(PropertySubject(event.City, event.Kind))
	msg.Header.Set("Content-Type", ContentTypeProtobuf)
	// Dedup window on the stream drops redelivered publishes of the same change.
	msg.Header.Set(nats.MsgIdHdr, event.PropertyID+":"+string(event.Kind)+":"+event.Time.UTC().Format(time.RFC3339Nano))
	msg.Data = data

	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection, e.g. for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
