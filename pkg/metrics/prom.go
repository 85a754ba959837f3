package metrics

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/edgeflare/postemu/pkg/httputil/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	SampledRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postemu_sampled_records_total",
			Help: "Total number of rows sampled from the source by record kind",
		},
		[]string{"kind"},
	)

	SampleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postemu_sample_errors_total",
			Help: "Total number of failed row samples by record kind",
		},
		[]string{"kind"},
	)

	PublishedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postemu_published_records_total",
			Help: "Total number of records handed to a sink by sink and kind",
		},
		[]string{"sink", "kind"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postemu_publish_errors_total",
			Help: "Total number of publish errors by sink",
		},
		[]string{"sink"},
	)

	SinkResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postemu_sink_responses_total",
			Help: "Total number of HTTP sink responses by sink and status code",
		},
		[]string{"sink", "code"},
	)

	IterationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postemu_iteration_duration_seconds",
			Help:    "Duration of one sample-and-send iteration, excluding the sleep",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type PromServerOpts struct {
	Logger            *zap.Logger
	Addr              string
	Path              string        // Path for metrics endpoint, defaults to "/metrics"
	ShutdownTimeout   time.Duration // Timeout for server shutdown, defaults to 5 seconds
	ReadHeaderTimeout time.Duration // Timeout for reading request headers, defaults to 3 seconds
}

func defaultPrometheusServerOptions() PromServerOpts {
	return PromServerOpts{
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		Logger:            zap.NewNop(),
	}
}

// Handler serves the Prometheus registry at path and a liveness probe at
// /healthz. Requests are access-logged at debug level.
func Handler(path string, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+path, promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(middleware.LoggerOptions{Logger: logger, Level: zapcore.DebugLevel}),
	)
}

// StartPrometheusServer starts a Prometheus metrics server with the given options
// The server gracefully shutdown when the provided context is canceled
func StartPrometheusServer(ctx context.Context, wg *sync.WaitGroup, opts *PromServerOpts) {
	// merge with defaults
	effectiveOpts := defaultPrometheusServerOptions()
	if opts != nil {
		effectiveOpts.Addr = cmp.Or(opts.Addr, effectiveOpts.Addr)
		effectiveOpts.Path = cmp.Or(opts.Path, effectiveOpts.Path)
		effectiveOpts.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effectiveOpts.ShutdownTimeout)
		effectiveOpts.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effectiveOpts.ReadHeaderTimeout)
		if opts.Logger != nil {
			effectiveOpts.Logger = opts.Logger
		}
	}
	logger := effectiveOpts.Logger

	server := &http.Server{
		Addr:              effectiveOpts.Addr,
		Handler:           Handler(effectiveOpts.Path, logger),
		ReadHeaderTimeout: effectiveOpts.ReadHeaderTimeout,
	}

	serverClosed := make(chan struct{})

	wg.Add(1)

	go func() {
		defer wg.Done()
		logger.Info("starting prometheus metrics server", zap.String("addr", effectiveOpts.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
		close(serverClosed)
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), effectiveOpts.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", zap.Error(err))
		}

		select {
		case <-serverClosed:
			logger.Info("metrics server shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("metrics server shutdown timed out")
		}
	}()
}
