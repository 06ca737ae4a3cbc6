// Package events provides the NATS JetStream client used to hand
// notification events to the platform notification service.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Client publishes events to NATS JetStream.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect dials the NATS server and opens a JetStream context.
func Connect(url, serviceName string) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open JetStream context: %w", err)
	}

	return &Client{conn: conn, js: js}, nil
}

// Publish sends data to a subject, honoring ctx cancellation.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}
