package mqtt

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

// PeerMQTT implements the sink for MQTT
type PeerMQTT struct {
	*Client
	Config Config
}

type Config struct {
	Servers       []string `json:"servers"`
	TopicPrefix   string   `json:"topicPrefix"`
	QoS           byte     `json:"qos,omitempty"`
	Retained      bool     `json:"retained,omitempty"`
	ClientOptions `json:"clientOptions"`
}

func (p *PeerMQTT) Connect(config json.RawMessage, args ...any) error {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("failed to unmarshal MQTT config: %w", err)}
	}
	if cfg.QoS > 2 {
		return &pipeline.ConfigError{Err: fmt.Errorf("invalid qos %d", cfg.QoS)}
	}
	cfg.TopicPrefix = strings.TrimSuffix(cmp.Or(cfg.TopicPrefix, "postemu"), "/")
	p.Config = cfg

	if p.Client != nil {
		return nil
	}

	mqttOpts, err := convertToPahoOptions(cfg.Servers, &cfg.ClientOptions)
	if err != nil {
		return &pipeline.ConfigError{Err: err}
	}

	logger := pipeline.LoggerFromArgs(args...)
	client := NewClient(mqttOpts, logger)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	p.Client = client

	logger.Info("MQTT peer initialized",
		zap.Strings("servers", cfg.Servers),
		zap.String("topic_prefix", cfg.TopicPrefix))
	return nil
}

// Topic returns the topic records of kind are published to.
func (p *PeerMQTT) Topic(kind record.Kind) string {
	return fmt.Sprintf("%s/%s", p.Config.TopicPrefix, kind)
}

func (p *PeerMQTT) Pub(ctx context.Context, rec record.Record) error {
	if p.Client == nil {
		return pipeline.ErrNotConnected
	}

	data, err := json.Marshal(rec.Values(record.KafkaTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", rec.Kind(), err)
	}

	topic := p.Topic(rec.Kind())
	if err := p.Client.Publish(ctx, topic, p.Config.QoS, p.Config.Retained, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Info("Data sent successfully!", zap.String("topic", topic))
	return nil
}

func (p *PeerMQTT) Disconnect() error {
	if p.Client != nil {
		p.Client.Disconnect()
		p.Client = nil
	}
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorMQTT, func() pipeline.Connector { return &PeerMQTT{} })
}
