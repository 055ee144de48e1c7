package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// NATSConfig configures the optional NATS publish sink. The sink is not
// registered at all when Address is empty — there is no disabled-but-
// present no-op implementation.
type NATSConfig struct {
	Address       string
	Subject       string
	Username      string
	Password      string
	CredsFilePath string
}

// NATS publishes the JSON-encoded record to a configured subject over a
// long-lived connection with reconnect handling.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS dials cfg.Address and returns a sink ready to publish to
// cfg.Subject. Returns an error if the address is unreachable at
// startup.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	var opts []nats.Option

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}

	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			log.Warnf("nats sink: disconnected: %v", err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		log.Infof("nats sink: reconnected to %s", nc.ConnectedUrl())
	}))
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		log.Errorf("nats sink: error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats sink: connect to %s: %w", cfg.Address, err)
	}

	return &NATS{conn: nc, subject: cfg.Subject}, nil
}

// Save publishes record as JSON to the configured subject.
func (n *NATS) Save(_ context.Context, record map[string]any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("nats sink: marshal record: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats sink: publish to %s: %w", n.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATS) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return fmt.Errorf("nats sink: drain: %w", err)
	}
	return nil
}
