package nats

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// PeerNATS implements the sink for NATS
type PeerNATS struct {
	nc     *nats.Conn
	logger *zap.Logger
	// publish sends one message, over core NATS or JetStream
	publish func(ctx context.Context, subject string, data []byte) error
	Config  Config
}

// Config represents NATS configuration
type Config struct {
	Servers       []string `json:"servers"`
	Stream        string   `json:"stream,omitempty"`
	SubjectPrefix string   `json:"subjectPrefix"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"password,omitempty"`
	JetStream     bool     `json:"jetStream,omitempty"`
	TLS           struct {
		Enabled  bool   `json:"enabled"`
		CertFile string `json:"certFile,omitempty"`
		KeyFile  string `json:"keyFile,omitempty"`
		CAFile   string `json:"caFile,omitempty"`
	} `json:"tls,omitempty"`
}

// Connect establishes a connection to the NATS server
func (p *PeerNATS) Connect(config json.RawMessage, args ...any) error {
	if err := json.Unmarshal(config, &p.Config); err != nil {
		return &pipeline.ConfigError{Err: fmt.Errorf("unmarshal NATS config: %w", err)}
	}
	if p.Config.SubjectPrefix == "" {
		return &pipeline.ConfigError{Err: errors.New("subjectPrefix is required")}
	}

	if len(p.Config.Servers) == 0 {
		p.Config.Servers = []string{nats.DefaultURL}
	}
	p.Config.Stream = cmp.Or(p.Config.Stream, fmt.Sprintf("%s-stream", p.Config.SubjectPrefix))
	p.logger = pipeline.LoggerFromArgs(args...)

	if p.publish != nil {
		return nil
	}

	opts := defaultOptions(p.Config)

	// Connect to first available server
	var err error
	for _, server := range p.Config.Servers {
		p.nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("connect to NATS server: %w", err)
	}

	if !p.Config.JetStream {
		p.publish = func(_ context.Context, subject string, data []byte) error {
			return p.nc.Publish(subject, data)
		}
		p.logger.Info("NATS peer initialized", zap.String("url", p.nc.ConnectedUrl()))
		return nil
	}

	js, err := p.nc.JetStream()
	if err != nil {
		p.nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}
	if err := p.ensureStream(js); err != nil {
		p.nc.Close()
		return fmt.Errorf("ensure stream: %w", err)
	}
	p.publish = func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(subject, data, nats.Context(ctx))
		return err
	}

	p.logger.Info("NATS peer initialized",
		zap.String("url", p.nc.ConnectedUrl()),
		zap.String("stream", p.Config.Stream))
	return nil
}

// Subject returns the subject records of kind are published to.
func (p *PeerNATS) Subject(kind record.Kind) string {
	return fmt.Sprintf("%s.%s", p.Config.SubjectPrefix, kind)
}

// Pub publishes a record to NATS
func (p *PeerNATS) Pub(ctx context.Context, rec record.Record) error {
	if p.publish == nil {
		return pipeline.ErrNotConnected
	}

	data, err := json.Marshal(rec.Values(record.KafkaTimeLayout))
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", rec.Kind(), err)
	}

	subject := p.Subject(rec.Kind())
	if err := p.publish(ctx, subject, data); err != nil {
		p.logger.Error("failed to publish message", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Info("Data sent successfully!", zap.String("subject", subject))
	return nil
}

// Disconnect drains and closes the NATS connection
func (p *PeerNATS) Disconnect() error {
	p.publish = nil
	if p.nc != nil {
		err := p.nc.Drain()
		p.nc = nil
		return err
	}
	return nil
}

// ensureStream creates or updates the stream
func (p *PeerNATS) ensureStream(js nats.JetStreamContext) error {
	config := streamConfig(p.Config)

	stream, err := js.StreamInfo(p.Config.Stream)
	if err == nil {
		if !streamConfigEqual(stream.Config, *config) {
			if _, err = js.UpdateStream(config); err != nil {
				return fmt.Errorf("update stream: %w", err)
			}
			p.logger.Info("updated stream", zap.String("stream", p.Config.Stream))
		}
		return nil
	}

	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("get stream info: %w", err)
	}

	if _, err := js.AddStream(config); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	p.logger.Info("created stream", zap.String("stream", p.Config.Stream))
	return nil
}

func streamConfig(c Config) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:     c.Stream,
		Subjects: []string{c.SubjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		Replicas: 1,
	}
}

// streamConfigEqual checks if two nats.StreamConfig are equivalent
func streamConfigEqual(a, b nats.StreamConfig) bool {
	if a.Name != b.Name || a.Storage != b.Storage || a.Replicas != b.Replicas {
		return false
	}

	if len(a.Subjects) != len(b.Subjects) {
		return false
	}

	for i := range a.Subjects {
		if a.Subjects[i] != b.Subjects[i] {
			return false
		}
	}
	return true
}

func defaultOptions(c Config) []nats.Option {
	opts := []nats.Option{
		nats.Name("postemu"),
		nats.Timeout(5 * time.Second),
		nats.PingInterval(10 * time.Second),
		nats.MaxPingsOutstanding(3),
	}

	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	if c.TLS.Enabled {
		if c.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(c.TLS.CAFile))
		}
		if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			opts = append(opts, nats.ClientCert(c.TLS.CertFile, c.TLS.KeyFile))
		}
	}

	return opts
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorNATS, func() pipeline.Connector { return &PeerNATS{} })
}
