// Package amqp publishes detection events to a RabbitMQ exchange
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
)

// Config selects where events are published
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	Queue      string
}

// publisher is the subset of *amqp.Channel used by the sink
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sink publishes one persistent JSON message per event
type Sink struct {
	cfg  Config
	conn *amqp.Connection
	ch   publisher

	mu sync.Mutex
}

// Dial connects to the broker and declares the configured queue. When Queue
// is set and Exchange is empty the message goes through the default exchange
// straight to the queue.
func Dial(cfg Config) (*Sink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
		}
	}

	if cfg.Queue != "" {
		if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
		}
		if cfg.Exchange != "" {
			if err := ch.QueueBind(cfg.Queue, routingKey(cfg), cfg.Exchange, false, nil); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
			}
		}
	}

	s := newSink(cfg, ch)
	s.conn = conn
	return s, nil
}

func newSink(cfg Config, ch publisher) *Sink {
	return &Sink{cfg: cfg, ch: ch}
}

func routingKey(cfg Config) string {
	if cfg.Exchange == "" && cfg.Queue != "" {
		return cfg.Queue
	}
	return cfg.RoutingKey
}

// Name implements notification.Sink
func (s *Sink) Name() string {
	return "amqp"
}

// Send implements notification.Sink
func (s *Sink) Send(ctx context.Context, event matching.DetectionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         "detection",
		Body:         body,
	}

	// channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ch.PublishWithContext(ctx, s.cfg.Exchange, routingKey(s.cfg), false, false, msg); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close implements notification.Closer
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ notification.Sink   = (*Sink)(nil)
	_ notification.Closer = (*Sink)(nil)
)
