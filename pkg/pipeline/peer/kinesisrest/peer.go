// Package kinesisrest forwards records to an API-gateway proxy of the Kinesis
// PutRecord action. Every record is one `PUT` to the endpoint configured for
// its kind, with body
//
//	{"StreamName": "<streamPrefix>-<kind>", "Data": {...}, "PartitionKey": "<uuid>"}
package kinesisrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edgeflare/postemu/pkg/pipeline"
	httppeer "github.com/edgeflare/postemu/pkg/pipeline/peer/http"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ContentType = "application/json"

// Config is the kinesisrest peer configuration.
type Config struct {
	httppeer.ClientConfig
	// Endpoints maps a record kind (pin, geo, user) to its invoke URL.
	Endpoints    map[string]string `json:"endpoints"`
	StreamPrefix string            `json:"streamPrefix"`
}

// PeerKinesisREST implements the sink for an HTTP-fronted Kinesis stream
type PeerKinesisREST struct {
	sender *httppeer.Sender
	logger *zap.Logger
	// newKey returns the partition key of the next record
	newKey func() string
	config Config
}

func (p *PeerKinesisREST) Connect(config json.RawMessage, args ...any) error {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("failed to unmarshal Kinesis REST config: %w", err)}
	}
	if cfg.StreamPrefix == "" {
		return &pipeline.ConfigError{Err: errors.New("streamPrefix is required")}
	}
	for _, kind := range record.Kinds {
		if cfg.Endpoints[string(kind)] == "" {
			return &pipeline.ConfigError{Err: fmt.Errorf("no endpoint configured for %s records", kind)}
		}
	}

	p.logger = pipeline.LoggerFromArgs(args...)
	sender, err := httppeer.NewSender(pipeline.ConnectorKinesisREST, cfg.ClientConfig, p.logger)
	if err != nil {
		return err
	}

	p.sender = sender
	p.config = cfg
	if p.newKey == nil {
		p.newKey = func() string { return uuid.NewString() }
	}
	p.logger.Info("Kinesis REST peer initialized",
		zap.String("stream_prefix", cfg.StreamPrefix),
		zap.Int("num_endpoints", len(cfg.Endpoints)))
	return nil
}

// Stream returns the stream name records of kind are put to.
func (p *PeerKinesisREST) Stream(kind record.Kind) string {
	return fmt.Sprintf("%s-%s", p.config.StreamPrefix, kind)
}

func (p *PeerKinesisREST) Pub(ctx context.Context, rec record.Record) error {
	if p.sender == nil {
		return pipeline.ErrNotConnected
	}

	stream := p.Stream(rec.Kind())
	key := p.newKey()
	body, err := record.KinesisEnvelope(stream, key, rec)
	if err != nil {
		return err
	}

	return p.sender.Send(ctx, http.MethodPut, p.config.Endpoints[string(rec.Kind())], ContentType, body,
		zap.String("stream", stream),
		zap.String("partition_key", key))
}

func (p *PeerKinesisREST) Disconnect() error {
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKinesisREST, func() pipeline.Connector { return &PeerKinesisREST{} })
}
