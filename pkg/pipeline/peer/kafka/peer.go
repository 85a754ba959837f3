package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"go.uber.org/zap"
)

// PeerKafka implements the sink for Kafka brokers
type PeerKafka struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	config   *Config

	// newProducer and newAdmin are swapped out in tests
	newProducer func(brokers []string, conf *sarama.Config) (sarama.SyncProducer, error)
	newAdmin    func(brokers []string, conf *sarama.Config) (sarama.ClusterAdmin, error)
}

func (p *PeerKafka) Connect(config json.RawMessage, args ...any) error {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("failed to unmarshal Kafka config: %w", err)}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return &pipeline.ConfigError{Err: err}
	}

	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return &pipeline.ConfigError{Err: err}
	}

	p.logger = pipeline.LoggerFromArgs(args...)
	p.config = &cfg

	if cfg.CreateTopics {
		if err := p.ensureTopics(cfg.Brokers, saramaConfig); err != nil {
			return err
		}
	}

	newProducer := p.newProducer
	if newProducer == nil {
		newProducer = sarama.NewSyncProducer
	}
	producer, err := newProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	p.producer = producer

	p.logger.Info("Kafka peer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix))
	return nil
}

// Topic returns the topic records of kind are produced to.
func (p *PeerKafka) Topic(kind record.Kind) string {
	return fmt.Sprintf("%s.%s", p.config.TopicPrefix, kind)
}

func (p *PeerKafka) Pub(ctx context.Context, rec record.Record) error {
	if p.producer == nil {
		return pipeline.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec.Values(record.KafkaTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", rec.Kind(), err)
	}

	topic := p.Topic(rec.Kind())
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("failed to publish message", zap.String("topic", topic), zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Info("Data sent successfully!",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *PeerKafka) Disconnect() error {
	if p.producer != nil {
		err := p.producer.Close()
		p.producer = nil
		return err
	}
	return nil
}

// ensureTopics creates the per-kind topics that don't exist yet.
func (p *PeerKafka) ensureTopics(brokers []string, conf *sarama.Config) error {
	newAdmin := p.newAdmin
	if newAdmin == nil {
		newAdmin = sarama.NewClusterAdmin
	}
	admin, err := newAdmin(brokers, conf)
	if err != nil {
		return fmt.Errorf("failed to create cluster admin: %w", err)
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	retention := fmt.Sprintf("%d", p.config.RetentionMS)
	for _, kind := range record.Kinds {
		topic := p.Topic(kind)
		if _, exists := topics[topic]; exists {
			continue
		}
		detail := &sarama.TopicDetail{
			NumPartitions:     p.config.Partitions,
			ReplicationFactor: p.config.Replicas,
			ConfigEntries: map[string]*string{
				"retention.ms": &retention,
			},
		}
		if err := admin.CreateTopic(topic, detail, false); err != nil {
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		}
		p.logger.Info("created topic", zap.String("topic", topic))
	}
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKafka, func() pipeline.Connector { return &PeerKafka{} })
}
