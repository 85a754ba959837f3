// Package http holds the plumbing shared by the HTTP-fronted sinks: request
// authentication, a single-attempt sender and response logging.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/edgeflare/postemu/pkg/httputil"
	"github.com/edgeflare/postemu/pkg/metrics"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"go.uber.org/zap"
)

// ClientConfig is the part of an HTTP sink's config shared by every HTTP sink.
type ClientConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
	Auth    AuthConfig        `json:"auth"`
	Timeout string            `json:"timeout,omitempty"`
}

// Sender performs one HTTP call per record and logs the outcome.
type Sender struct {
	client  *http.Client
	logger  *zap.Logger
	headers map[string]string
	auth    AuthConfig
	sink    string
}

// NewSender validates cfg and returns a Sender for the named sink.
func NewSender(sink string, cfg ClientConfig, logger *zap.Logger) (*Sender, error) {
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, &pipeline.ConfigError{Err: fmt.Errorf("invalid timeout duration: %w", err)}
		}
		timeout = parsed
	}

	cfg.Auth.setDefaults()
	if err := cfg.Auth.validate(); err != nil {
		return nil, &pipeline.ConfigError{Err: err}
	}
	if err := cfg.Auth.loadToken(); err != nil {
		return nil, &pipeline.ConfigError{Err: fmt.Errorf("read token file: %w", err)}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		headers: cfg.Headers,
		auth:    cfg.Auth,
		sink:    sink,
	}, nil
}

// Send issues a single request with body and the given content type. A
// response other than 200 is logged and returned as an error, and so is a
// transport failure. Nothing is retried.
func (s *Sender) Send(ctx context.Context, method, url, contentType string, body []byte, fields ...zap.Field) error {
	config := httputil.DefaultRequestConfig(method, url)
	config.Client = s.client
	config.Logger = s.logger
	config.Headers = s.buildHeaders(contentType)

	fields = append(fields, zap.String("url", url))
	resp, err := httputil.Request(ctx, config, body)
	httputil.LogOutcome(s.logger, resp, err, fields...)
	if err != nil {
		return err
	}

	metrics.SinkResponses.WithLabelValues(s.sink, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", httputil.ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func (s *Sender) buildHeaders(contentType string) map[string][]string {
	headers := make(map[string][]string)

	for key, value := range s.headers {
		headers[key] = []string{value}
	}
	headers["Content-Type"] = []string{contentType}
	s.auth.apply(headers)

	return headers
}
