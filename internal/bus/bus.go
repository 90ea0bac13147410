// Package bus implements the subject-based publish/subscribe
// collaborator the matching core treats as an external dependency
// (spec.md §6 "Bus contract"): connect, publish, subscribe, close,
// health_check, with at-least-once delivery.
//
// Grounded on original_source/src/common/broker/base.py (the abstract
// method set) and nats_broker.py (the NATS-specific implementation),
// translated onto github.com/nats-io/nats.go, which the retrieval pack
// names in other_examples/manifests/abdoElHodaky-tradSys/go.mod.
package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"fenrir/internal/config"
)

const flushTimeout = 1 * time.Second

// Handler processes one message payload delivered on a subscription.
type Handler func(payload []byte)

// Broker is the contract the matching core's surrounding processes
// depend on; it is never imported by internal/book or internal/matcher.
type Broker interface {
	Connect() error
	Close() error
	Publish(subject string, payload []byte) error
	Subscribe(subject string, handler Handler) error
	HealthCheck() error
}

// NATSBroker is a Broker backed by a NATS connection.
type NATSBroker struct {
	cfg  config.NatsConfig
	conn *nats.Conn
}

// New returns a broker configured from cfg. Connect must be called
// before Publish or Subscribe.
func New(cfg config.NatsConfig) *NATSBroker {
	return &NATSBroker{cfg: cfg}
}

// Connect dials the configured NATS server, applying the reconnect
// policy from config.
func (b *NATSBroker) Connect() error {
	if b.conn != nil && b.conn.IsConnected() {
		log.Info().Msg("nats client is already connected")
		return nil
	}

	conn, err := nats.Connect(
		b.cfg.URL,
		nats.MaxReconnects(b.cfg.Reconnect.MaxAttempts),
		nats.ReconnectWait(b.cfg.Reconnect.Wait()),
		nats.Timeout(b.cfg.Reconnect.ConnectTimeout()),
	)
	if err != nil {
		log.Error().Err(err).Str("url", b.cfg.URL).Msg("failed to connect to nats")
		return fmt.Errorf("bus: connect %s: %w", b.cfg.URL, err)
	}

	log.Info().Str("url", b.cfg.URL).Msg("connected to nats server")
	b.conn = conn
	return nil
}

// Close drains and closes the connection, tolerating a nil or already
// closed connection.
func (b *NATSBroker) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain failed, closing without draining")
		b.conn.Close()
		return nil
	}
	log.Info().Msg("nats connection closed")
	return nil
}

// Publish sends payload to subject, reconnecting first if necessary.
func (b *NATSBroker) Publish(subject string, payload []byte) error {
	if b.conn == nil || !b.conn.IsConnected() {
		log.Warn().Msg("nats not connected, attempting reconnect before publish")
		if err := b.Connect(); err != nil {
			return err
		}
	}
	if err := b.conn.Publish(subject, payload); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish message")
		return fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers handler to run for every message on subject.
func (b *NATSBroker) Subscribe(subject string, handler Handler) error {
	if b.conn == nil || !b.conn.IsConnected() {
		if err := b.Connect(); err != nil {
			return err
		}
	}
	_, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to subscribe")
		return fmt.Errorf("bus: subscribe %s: %w", subject, err)
	}
	log.Info().Str("subject", subject).Msg("subscribed to subject")
	return nil
}

// HealthCheck flushes the connection, surfacing whether the broker is
// reachable.
func (b *NATSBroker) HealthCheck() error {
	if b.conn == nil {
		return fmt.Errorf("bus: not connected")
	}
	if !b.conn.IsConnected() {
		return fmt.Errorf("bus: connection not established")
	}
	if err := b.conn.FlushTimeout(flushTimeout); err != nil {
		log.Error().Err(err).Msg("nats health check failed")
		return fmt.Errorf("bus: health check: %w", err)
	}
	return nil
}
