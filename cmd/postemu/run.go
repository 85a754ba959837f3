package postemu

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/postemu/pkg/emulator"
	"github.com/edgeflare/postemu/pkg/metrics"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Register built-in connectors
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/debug"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/kafka"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/kafkarest"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/kinesis"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/kinesisrest"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/mqtt"
	_ "github.com/edgeflare/postemu/pkg/pipeline/peer/nats"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"r"},
	Short:   "Run the posting emulation",
	Long: `Samples one pin, geolocation and user row at a random offset every few
seconds and sends them to every configured sink until interrupted.`,
	RunE: runEmulation,
}

func init() {
	f := runCmd.Flags()
	f.Bool("metrics", false, "Enable Prometheus metrics server")
	f.String("metrics-addr", ":9100", "Prometheus metrics server address")
	f.Int("iterations", 0, "Stop after this many iterations (0 runs until interrupted)")
	f.Int64("seed", 0, "Seed of the offset and sleep sequence (default 100)")
}

// applyFlags lets explicitly set flags override the loaded config.
func applyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("metrics") {
		cfg.Metrics.Enabled, _ = f.GetBool("metrics")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("iterations") {
		cfg.Emulator.Iterations, _ = f.GetInt("iterations")
	}
	if f.Changed("seed") {
		cfg.Sampler.Seed, _ = f.GetInt64("seed")
	}
}

func runEmulation(cmd *cobra.Command, args []string) error {
	applyFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{
			Addr:   cfg.Metrics.Addr,
			Logger: logger,
		})
	}

	m := pipeline.NewManager(logger)
	if err := m.Init(ctx, &cfg.Pipeline); err != nil {
		m.Close()
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to disconnect sinks", zap.Error(err))
		}
	}()

	e, err := emulator.New(emulator.Options{
		Publisher:  m,
		Logger:     logger,
		Source:     cfg.Source,
		Sampler:    cfg.Sampler,
		Iterations: cfg.Emulator.Iterations,
	})
	if err != nil {
		return err
	}

	if err := e.Run(ctx); err != nil {
		return err
	}

	// stop the metrics server when the iteration limit ended the run
	stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10 seconds")
	}
	return nil
}

// ensure the manager satisfies the emulator's publisher
var _ emulator.Publisher = (*pipeline.Manager)(nil)
