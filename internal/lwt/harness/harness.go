package harness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lwt/internal/lwt"
	"lwt/internal/validator"
)

// Harness provisions a namespace, loads fixtures and exercises conditional
// updates against them.
type Harness struct {
	store     lwt.Store
	exerciser lwt.Exerciser
	logger    *zap.Logger
	config    Config
}

func NewHarness(store lwt.Store, exerciser lwt.Exerciser, logger *zap.Logger, config Config) (*Harness, error) {
	h := Harness{
		store:     store,
		exerciser: exerciser,
		logger:    logger,
		config:    config,
	}

	if err := validator.Validate("harness", h.store, h.exerciser, h.logger); err != nil {
		return nil, fmt.Errorf("failed to validate harness deps: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate harness config: %w", err)
	}

	return &h, nil
}

// Reset drops and recreates the namespace. It is safe after a crashed run.
func (h *Harness) Reset(ctx context.Context) error {
	if err := h.store.Reset(ctx); err != nil {
		return fmt.Errorf("%w: %w", lwt.ErrSetup, err)
	}

	h.logger.Info("namespace created",
		zap.String("namespace", h.config.Schema.Namespace),
		zap.String("table", h.config.Schema.QualifiedTable()),
	)
	return nil
}

// Populate inserts the deterministic fixture records U0..U(n-1).
func (h *Harness) Populate(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Workers)

	for i := 0; i < h.config.RecordCount; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			return h.store.Insert(gctx, lwt.SeedRecord(i))
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to populate table: %w", err)
	}

	h.logger.Info("table populated", zap.Int("records", h.config.RecordCount))
	return nil
}

// Teardown drops the namespace. Failures are logged since the run is over.
func (h *Harness) Teardown(ctx context.Context) {
	if err := h.store.Drop(ctx); err != nil {
		h.logger.Error("failed to drop namespace", zap.String("namespace", h.config.Schema.Namespace), zap.Error(err))
		return
	}

	h.logger.Info("namespace dropped", zap.String("namespace", h.config.Schema.Namespace))
}

// Run executes reset, populate, the fresh path, the stale path and teardown.
// The report is returned even when the run fails part way.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := newReport(h.config)

	if err := h.Reset(ctx); err != nil {
		return report, err
	}
	if !h.config.KeepNamespace {
		defer h.Teardown(context.WithoutCancel(ctx))
	}

	if err := h.Populate(ctx); err != nil {
		return report, err
	}
	report.Records = h.config.RecordCount

	if h.config.Fresh {
		if err := h.exercise(ctx, report, lwt.PathFresh, h.config.FreshKeys); err != nil {
			return report, err
		}
	}

	if err := h.exercise(ctx, report, lwt.PathStale, h.config.staleKeys()); err != nil {
		return report, err
	}

	h.logger.Info("lightweight transaction run finished",
		zap.Int("fresh", report.Fresh.Exercised),
		zap.Int("stale", report.Stale.Exercised),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return report, nil
}

// exercise runs one path over keys. Each key is handled start to finish by
// a single goroutine; results are folded into the report by one aggregator.
func (h *Harness) exercise(ctx context.Context, report *Report, path lwt.Path, keys []string) error {
	results := make(chan lwt.Exercise)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ex := range results {
			report.Add(ex)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Workers)

	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		key := key
		g.Go(func() error {
			ex, err := h.exerciseKey(gctx, path, key)
			if err != nil {
				return err
			}

			results <- ex
			return h.check(ex)
		})
	}

	err := g.Wait()
	close(results)
	<-done

	if err != nil {
		return fmt.Errorf("failed to exercise %s path: %w", path, err)
	}
	return nil
}

func (h *Harness) exerciseKey(ctx context.Context, path lwt.Path, key string) (lwt.Exercise, error) {
	if path == lwt.PathFresh {
		return h.exerciser.ExerciseFresh(ctx, key)
	}
	return h.exerciser.ExerciseStale(ctx, key)
}

// check surfaces a violation: as the run's error in strict mode, as an
// error log otherwise.
func (h *Harness) check(ex lwt.Exercise) error {
	v := ex.Violation
	if v == nil {
		return nil
	}

	h.logger.Error("CAS contract violated",
		zap.String("key", v.Key),
		zap.String("path", string(v.Path)),
		zap.String("expected", v.Expected),
		zap.String("got", v.Got),
		zap.Error(v.Err),
	)

	if h.config.Strict {
		return v
	}
	return nil
}
