package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edgeflare/postemu/pkg/metrics"
	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

// Manager handles the connected peers records are forwarded to.
type Manager struct {
	logger *zap.Logger
	peers  []Peer
	// ConnectBackoff returns the backoff used while bringing up a peer.
	// Defaults to three attempts with exponential backoff.
	ConnectBackoff func() backoff.BackOff
}

// NewManager returns a new Manager that logs to logger.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger: logger,
		ConnectBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 3 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
	}
}

// AddPeer connects a new peer and appends it to the fan-out list.
func (m *Manager) AddPeer(ctx context.Context, p Peer) error {
	for _, existing := range m.peers {
		if existing.Name == p.Name {
			return fmt.Errorf("peer %s already exists", p.Name)
		}
	}

	connector, err := NewConnector(p.ConnectorName)
	if err != nil {
		return fmt.Errorf("peer %s: %w: %s", p.Name, err, p.ConnectorName)
	}

	configJSON, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config for peer %s: %w", p.Name, err)
	}

	peerLogger := m.logger.With(zap.String("sink", p.Name), zap.String("connector", p.ConnectorName))

	attempt := 0
	connect := func() error {
		attempt++
		if attempt > 1 {
			peerLogger.Warn("retrying connection", zap.Int("attempt", attempt))
		}
		err := connector.Connect(json.RawMessage(configJSON), peerLogger)
		if err != nil && isConfigError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(connect, backoff.WithContext(m.ConnectBackoff(), ctx)); err != nil {
		peerLogger.Error("failed to initialize connector", zap.Error(err))
		return fmt.Errorf("failed to initialize connector %s: %w", p.Name, err)
	}

	p.connector = connector
	m.peers = append(m.peers, p)
	peerLogger.Info("connected peer")
	return nil
}

// Init connects every configured peer. Peers keep the configured order.
func (m *Manager) Init(ctx context.Context, config *Config) error {
	m.logger.Info("initializing sinks", zap.Int("peerCount", len(config.Peers)))
	if len(config.Peers) == 0 {
		return errors.New("no sinks configured")
	}

	for _, p := range config.Peers {
		if err := m.AddPeer(ctx, p); err != nil {
			return err
		}
	}

	m.logger.Info("initialized all sinks", zap.Int("totalPeers", len(m.peers)))
	return nil
}

// Peers returns the connected peers in fan-out order.
func (m *Manager) Peers() []Peer {
	return append([]Peer(nil), m.peers...)
}

// Publish hands rec to every peer in turn. Failures are logged and counted,
// never returned: one sink failing does not stop the others.
func (m *Manager) Publish(ctx context.Context, rec record.Record) {
	kind := string(rec.Kind())
	for _, p := range m.peers {
		metrics.PublishedRecords.WithLabelValues(p.Name, kind).Inc()
		if err := p.connector.Pub(ctx, rec); err != nil {
			metrics.PublishErrors.WithLabelValues(p.Name).Inc()
			m.logger.Debug("publish failed",
				zap.String("sink", p.Name),
				zap.String("kind", kind),
				zap.Error(err))
		}
	}
}

// Close disconnects every peer.
func (m *Manager) Close() error {
	var errs []error
	for _, p := range m.peers {
		if err := p.connector.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", p.Name, err))
		}
	}
	m.peers = nil
	return errors.Join(errs...)
}

// ConfigError marks a connector configuration problem that retrying will not fix.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid config: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

func isConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
