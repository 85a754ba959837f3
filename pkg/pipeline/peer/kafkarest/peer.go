// Package kafkarest forwards records to a Kafka REST proxy (for example an
// API gateway in front of Confluent REST proxy). Every record is one
// `POST <invokeURL><topicPrefix>.<kind>` carrying a v2 JSON produce request:
//
//	{"records": [{"value": {...}}]}
package kafkarest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edgeflare/postemu/pkg/pipeline"
	httppeer "github.com/edgeflare/postemu/pkg/pipeline/peer/http"
	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

// ContentType is the media type of a Kafka REST proxy v2 JSON produce request.
const ContentType = "application/vnd.kafka.json.v2+json"

// Config is the kafkarest peer configuration.
type Config struct {
	httppeer.ClientConfig
	// InvokeURL is the topic base URL including its trailing slash, eg
	// https://abc.execute-api.us-east-1.amazonaws.com/prod/topics/
	InvokeURL   string `json:"invokeURL"`
	TopicPrefix string `json:"topicPrefix"`
}

// PeerKafkaREST implements the sink for a Kafka REST proxy
type PeerKafkaREST struct {
	sender *httppeer.Sender
	logger *zap.Logger
	config Config
}

func (p *PeerKafkaREST) Connect(config json.RawMessage, args ...any) error {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("failed to unmarshal Kafka REST config: %w", err)}
	}
	if cfg.InvokeURL == "" {
		return &pipeline.ConfigError{Err: errors.New("invokeURL is required")}
	}
	if cfg.TopicPrefix == "" {
		return &pipeline.ConfigError{Err: errors.New("topicPrefix is required")}
	}

	p.logger = pipeline.LoggerFromArgs(args...)
	sender, err := httppeer.NewSender(pipeline.ConnectorKafkaREST, cfg.ClientConfig, p.logger)
	if err != nil {
		return err
	}

	p.sender = sender
	p.config = cfg
	p.logger.Info("Kafka REST peer initialized",
		zap.String("invoke_url", cfg.InvokeURL),
		zap.String("topic_prefix", cfg.TopicPrefix))
	return nil
}

// Topic returns the topic records of kind are produced to.
func (p *PeerKafkaREST) Topic(kind record.Kind) string {
	return fmt.Sprintf("%s.%s", p.config.TopicPrefix, kind)
}

// URL returns the endpoint records of kind are posted to: the invoke URL
// followed by the topic, with nothing inserted between them.
func (p *PeerKafkaREST) URL(kind record.Kind) string {
	return p.config.InvokeURL + p.Topic(kind)
}

func (p *PeerKafkaREST) Pub(ctx context.Context, rec record.Record) error {
	if p.sender == nil {
		return pipeline.ErrNotConnected
	}

	body, err := record.KafkaEnvelope(rec)
	if err != nil {
		return err
	}

	return p.sender.Send(ctx, http.MethodPost, p.URL(rec.Kind()), ContentType, body,
		zap.String("topic", p.Topic(rec.Kind())))
}

func (p *PeerKafkaREST) Disconnect() error {
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKafkaREST, func() pipeline.Connector { return &PeerKafkaREST{} })
}
