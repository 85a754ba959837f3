// Package emulator runs the user-posting loop: every iteration it waits a
// random number of seconds, samples the pin, geo and user rows at one random
// offset and hands them, in that order, to the configured sinks.
//
// Failures never stop the loop. A failed connection skips the iteration, a
// missing or undecodable row skips that record.
package emulator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/postemu/pkg/metrics"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/edgeflare/postemu/pkg/source"
	"go.uber.org/zap"
)

// Publisher forwards a record to every sink. It reports failures itself.
type Publisher interface {
	Publish(ctx context.Context, rec record.Record)
}

// Opener opens a fresh database handle owned by the caller.
type Opener func(ctx context.Context, cfg source.Config) (*sql.DB, error)

// Options configures an Emulator.
type Options struct {
	Publisher Publisher
	Logger    *zap.Logger
	// Open defaults to source.Open
	Open    Opener
	Source  source.Config
	Sampler source.SamplerOptions
	// Iterations bounds the loop; zero runs until the context is done.
	Iterations int
}

// Emulator samples rows and publishes them as records.
type Emulator struct {
	publisher  Publisher
	logger     *zap.Logger
	open       Opener
	sampler    *source.Sampler
	dialect    source.Dialect
	tables     map[record.Kind]string
	source     source.Config
	iterations int
}

// New validates opts and returns an Emulator.
func New(opts Options) (*Emulator, error) {
	if opts.Publisher == nil {
		return nil, errors.New("emulator: publisher is required")
	}
	if opts.Iterations < 0 {
		return nil, fmt.Errorf("emulator: negative iterations %d", opts.Iterations)
	}

	cfg := opts.Source.WithDefaults()
	dialect, err := source.DialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}

	e := &Emulator{
		publisher: opts.Publisher,
		logger:    opts.Logger,
		open:      opts.Open,
		sampler:   source.NewSampler(opts.Sampler),
		dialect:   dialect,
		tables: map[record.Kind]string{
			record.KindPin:  cfg.Tables.Pin,
			record.KindGeo:  cfg.Tables.Geo,
			record.KindUser: cfg.Tables.User,
		},
		source:     cfg,
		iterations: opts.Iterations,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.open == nil {
		e.open = source.Open
	}
	return e, nil
}

// Run loops until ctx is done or the configured iterations are complete.
// Cancellation is a normal stop and returns nil.
func (e *Emulator) Run(ctx context.Context) error {
	e.logger.Info("starting emulation",
		zap.String("driver", e.source.Driver),
		zap.String("host", e.source.Host),
		zap.Int("iterations", e.iterations))

	for i := 0; e.iterations == 0 || i < e.iterations; i++ {
		if err := sleep(ctx, e.sampler.NextSleep()); err != nil {
			e.logger.Info("stopping emulation", zap.Int("completed", i))
			return nil
		}
		e.Iterate(ctx, e.sampler.NextOffset())
	}

	e.logger.Info("emulation finished", zap.Int("completed", e.iterations))
	return nil
}

// Iterate samples the rows at offset over a fresh connection and publishes
// the records that could be read and decoded.
func (e *Emulator) Iterate(ctx context.Context, offset int) {
	start := time.Now()
	defer func() { metrics.IterationDuration.Observe(time.Since(start).Seconds()) }()

	logger := e.logger.With(zap.Int("offset", offset))

	rows, err := e.sample(ctx, offset, logger)
	if err != nil {
		logger.Error("failed to sample source", zap.Error(err))
		for _, kind := range record.Kinds {
			metrics.SampleErrors.WithLabelValues(string(kind)).Inc()
		}
		return
	}

	for _, kind := range record.Kinds {
		row, ok := rows[kind]
		if !ok {
			continue
		}
		rec, err := record.Decode(kind, row)
		if err != nil {
			metrics.SampleErrors.WithLabelValues(string(kind)).Inc()
			logger.Error("failed to decode row", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		metrics.SampledRecords.WithLabelValues(string(kind)).Inc()
		logger.Debug("sampled record", zap.String("kind", string(kind)), zap.Any("value", rec.Values(record.KafkaTimeLayout)))
		e.publisher.Publish(ctx, rec)
	}
}

// sample reads one row per kind at offset and closes the connection before
// returning. Kinds whose row could not be read are absent from the result.
func (e *Emulator) sample(ctx context.Context, offset int, logger *zap.Logger) (map[record.Kind]source.Row, error) {
	db, err := e.open(ctx, e.source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close source connection", zap.Error(err))
		}
	}()

	rows := make(map[record.Kind]source.Row, len(record.Kinds))
	for _, kind := range record.Kinds {
		table := e.tables[kind]
		row, err := source.Fetch(ctx, db, e.dialect, table, offset)
		switch {
		case errors.Is(err, source.ErrNoRow):
			metrics.SampleErrors.WithLabelValues(string(kind)).Inc()
			logger.Warn("no row at offset", zap.String("table", table))
		case err != nil:
			metrics.SampleErrors.WithLabelValues(string(kind)).Inc()
			logger.Error("failed to fetch row", zap.String("table", table), zap.Error(err))
		default:
			rows[kind] = row
		}
	}
	return rows, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
