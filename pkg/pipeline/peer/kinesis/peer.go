// Package kinesis puts records straight into Kinesis data streams with the
// AWS SDK, one PutRecord call per record. Streams are named
// `<streamPrefix>-<kind>` and every record gets a fresh UUID partition key.
//
// A custom endpoint (eg localstack at http://localhost:4566) and static
// credentials may be configured; otherwise the default AWS credential chain
// is used.
package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	k "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Putter is the interface that wraps the Kinesis PutRecord method.
type Putter interface {
	PutRecord(context.Context, *k.PutRecordInput, ...func(*k.Options)) (*k.PutRecordOutput, error)
}

// Config is the kinesis peer configuration.
type Config struct {
	StreamPrefix    string `json:"streamPrefix"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"accessKeyID,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
}

// PeerKinesis implements the sink for Kinesis data streams
type PeerKinesis struct {
	client Putter
	logger *zap.Logger
	newKey func() string
	config Config
}

func (p *PeerKinesis) Connect(config json.RawMessage, args ...any) error {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("failed to unmarshal Kinesis config: %w", err)}
	}
	if cfg.StreamPrefix == "" {
		return &pipeline.ConfigError{Err: errors.New("streamPrefix is required")}
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return &pipeline.ConfigError{Err: errors.New("accessKeyID and secretAccessKey must be set together")}
	}

	p.logger = pipeline.LoggerFromArgs(args...)
	p.config = cfg
	if p.newKey == nil {
		p.newKey = uuid.NewString
	}

	if p.client == nil {
		client, err := newClient(context.Background(), cfg)
		if err != nil {
			return err
		}
		p.client = client
	}

	p.logger.Info("Kinesis peer initialized",
		zap.String("stream_prefix", cfg.StreamPrefix),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint))
	return nil
}

func newClient(ctx context.Context, cfg Config) (*k.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return k.NewFromConfig(awsCfg, func(o *k.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Stream returns the stream records of kind are put into.
func (p *PeerKinesis) Stream(kind record.Kind) string {
	return fmt.Sprintf("%s-%s", p.config.StreamPrefix, kind)
}

func (p *PeerKinesis) Pub(ctx context.Context, rec record.Record) error {
	if p.client == nil {
		return pipeline.ErrNotConnected
	}

	data, err := json.Marshal(rec.Values(record.KinesisTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", rec.Kind(), err)
	}

	stream := p.Stream(rec.Kind())
	out, err := p.client.PutRecord(ctx, &k.PutRecordInput{
		Data:         data,
		PartitionKey: aws.String(p.newKey()),
		StreamName:   aws.String(stream),
	})
	if err != nil {
		p.logger.Error("failed to put record", zap.String("stream", stream), zap.Error(err))
		return fmt.Errorf("failed to put record: %w", err)
	}

	p.logger.Info("Data sent successfully!",
		zap.String("stream", stream),
		zap.String("shard", aws.ToString(out.ShardId)),
		zap.String("sequence", aws.ToString(out.SequenceNumber)))
	return nil
}

func (p *PeerKinesis) Disconnect() error {
	p.client = nil
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKinesis, func() pipeline.Connector { return &PeerKinesis{} })
}
