package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DrainTimeout bounds Drain. Pending dismiss publishes are flushed within it.
const DrainTimeout = 5 * time.Second

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	closed chan struct{}
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name("ghostrev"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
		nats.DrainTimeout(DrainTimeout),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(closed)
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, closed: closed, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Drain stops delivery of new page signals, lets handlers already running
// finish and flushes queued ad publishes, then closes the connection.
func (c *Client) Drain() error {
	if err := c.conn.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	select {
	case <-c.closed:
		return nil
	case <-time.After(DrainTimeout + time.Second):
		c.conn.Close()
		return fmt.Errorf("drain: timed out after %s", DrainTimeout)
	}
}

// Register announces this instance on the agent registry subject.
func (c *Client) Register(port int, cooldown time.Duration) error {
	return c.Publish(SubjectRegistered, Registered{
		Port:      port,
		Cooldown:  cooldown.String(),
		Subjects:  []string{SubjectPageLoaded, SubjectPageEvent, SubjectPageClosed},
		Timestamp: time.Now().UTC(),
	})
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
