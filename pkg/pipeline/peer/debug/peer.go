package debug

import (
	"context"
	"encoding/json"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

// PeerDebug is a debug peer that logs each record
type PeerDebug struct {
	logger *zap.Logger
}

func (p *PeerDebug) Pub(_ context.Context, rec record.Record) error {
	if p.logger == nil {
		return pipeline.ErrNotConnected
	}
	p.logger.Info(pipeline.ConnectorDebug,
		zap.String("kind", string(rec.Kind())),
		zap.Any("value", rec.Values(record.KafkaTimeLayout)))
	return nil
}

func (p *PeerDebug) Connect(_ json.RawMessage, args ...any) error {
	p.logger = pipeline.LoggerFromArgs(args...)
	return nil
}

func (p *PeerDebug) Disconnect() error {
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorDebug, func() pipeline.Connector { return &PeerDebug{} })
}
