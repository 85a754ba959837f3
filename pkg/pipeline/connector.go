package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

var (
	ErrConnectorNotFound = errors.New("connector not found")
	ErrNotConnected      = errors.New("connector not connected")
)

// A Connector forwards records to one destination.
type Connector interface {
	// Connect initializes the connector with the provided configuration.
	// The config parameter is a raw JSON message containing connector-specific settings.
	// A *zap.Logger may be passed via args.
	Connect(config json.RawMessage, args ...any) error

	// Pub sends one record to the connector's destination. Each call is a
	// single best-effort attempt.
	Pub(ctx context.Context, rec record.Record) error

	Disconnect() error
}

// Predefined connectors
const (
	ConnectorDebug       = "debug"
	ConnectorKafkaREST   = "kafkarest"
	ConnectorKinesisREST = "kinesisrest"
	ConnectorKafka       = "kafka"
	ConnectorKinesis     = "kinesis"
	ConnectorMQTT        = "mqtt"
	ConnectorNATS        = "nats"
)

var (
	connectors   = make(map[string]func() Connector)
	connectorsMu sync.RWMutex
)

// RegisterConnector adds a connector factory to the registry.
// The name parameter is used as a key to identify the connector type.
func RegisterConnector(name string, factory func() Connector) {
	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	connectors[name] = factory
}

// NewConnector returns a fresh, unconnected instance of the named connector.
func NewConnector(name string) (Connector, error) {
	connectorsMu.RLock()
	factory, ok := connectors[name]
	connectorsMu.RUnlock()
	if !ok {
		return nil, ErrConnectorNotFound
	}
	return factory(), nil
}

// Connectors returns the names of all registered connectors.
func Connectors() []string {
	connectorsMu.RLock()
	defer connectorsMu.RUnlock()
	names := make([]string, 0, len(connectors))
	for name := range connectors {
		names = append(names, name)
	}
	return names
}

// LoggerFromArgs returns the first *zap.Logger in args, or a no-op logger.
func LoggerFromArgs(args ...any) *zap.Logger {
	for _, arg := range args {
		if l, ok := arg.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}
