// Package mqtt publishes detection events to an MQTT broker
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
	"clipwatch/infrastructure/logging"
)

// Config selects the broker and topic
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

// client is the subset of pahomqtt.Client used by the sink
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Sink publishes events to <topic>/<clip name>
type Sink struct {
	cfg    Config
	client client

	mu        sync.RWMutex
	connected bool
	published uint64
}

// Connect establishes a connection to the broker with automatic reconnection
func Connect(ctx context.Context, cfg Config) (*Sink, error) {
	log := logging.Named("mqtt")
	s := &Sink{cfg: cfg}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c pahomqtt.Client) {
		s.setConnected(true)
		log.Info().Str("broker", cfg.Broker).Str("client_id", cfg.ClientID).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		s.setConnected(false)
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	c := pahomqtt.NewClient(opts)
	s.client = c

	token := c.Connect()
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		c.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	s.setConnected(true)
	return s, nil
}

func newSink(cfg Config, c client) *Sink {
	return &Sink{cfg: cfg, client: c, connected: true}
}

func (s *Sink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// Topic returns the topic an event is published on
func (s *Sink) Topic(event matching.DetectionEvent) string {
	return strings.TrimSuffix(s.cfg.Topic, "/") + "/" + topicSegment(event.ClipName)
}

// topicSegment strips characters that are wildcards or separators in MQTT topics
func topicSegment(name string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(name)
}

// Name implements notification.Sink
func (s *Sink) Name() string {
	return "mqtt"
}

// Send implements notification.Sink
func (s *Sink) Send(ctx context.Context, event matching.DetectionEvent) error {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	if !connected {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	token := s.client.Publish(s.Topic(event), s.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish interrupted: %w", ctx.Err())
	case <-time.After(2 * time.Second):
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	s.mu.Lock()
	s.published++
	s.mu.Unlock()
	return nil
}

// Published returns the number of events delivered
func (s *Sink) Published() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Close implements notification.Closer
func (s *Sink) Close() error {
	s.client.Disconnect(250)
	s.setConnected(false)
	return nil
}

var (
	_ notification.Sink   = (*Sink)(nil)
	_ notification.Closer = (*Sink)(nil)
)
