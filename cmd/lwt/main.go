package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lwt/internal/cassandra"
	"lwt/internal/couchbase"
	"lwt/internal/lwt"
	"lwt/internal/lwt/harness"
	"lwt/internal/lwt/metrics"
	lwtstore "lwt/internal/lwt/store"
	"lwt/internal/lwt/tracing"
)

type Config struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"cassandra"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	Profile      bool   `env:"PROFILE" envDefault:"false"`

	Cassandra cassandra.Config     `envPrefix:"CASSANDRA_"`
	Couchbase couchbase.Config     `envPrefix:"COUCHBASE_"`
	Harness   harness.Config       `envPrefix:"LWT_"`
	Metrics   metrics.ServerConfig `envPrefix:"METRICS_"`
	Tracing   tracing.Config       `envPrefix:"TRACING_"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything a command needs, wired from Config.
type app struct {
	cfg      Config
	logger   *zap.Logger
	registry *metrics.Registry
	tracer   *tracing.Tracer
	store    lwt.Store
	harness  *harness.Harness
	cleanup  []func(context.Context)
}

func newApp(cfg Config) (*app, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	a.cfg.Harness.RunID = uuid.NewString()
	logger = logger.With(zap.String("run_id", a.cfg.Harness.RunID))
	a.logger = logger

	a.registry = metrics.NewRegistry()
	a.registry.SetSystemInfo(cfg.Tracing.ServiceVersion, a.cfg.Harness.RunID)

	tracer, tracingCleanup, err := tracing.NewTracer(cfg.Tracing, cfg.StoreBackend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracer = tracer
	a.onClose(func(ctx context.Context) {
		if err := tracingCleanup(ctx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	})

	backend, err := newStore(cfg)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.onClose(func(context.Context) {
		if err := backend.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	})
	logger.Info("store connected", zap.String("backend", cfg.StoreBackend))

	metricsStore := lwtstore.NewMetricsStore(backend, a.registry)
	a.store = lwtstore.NewTracedStore(metricsStore, a.tracer)

	baseExerciser, err := harness.NewExerciser(
		a.store,
		logger.Named("exerciser"),
		a.cfg.Harness.NewEmail,
		a.cfg.Harness.InterferingEmail,
	)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	metricsExerciser := harness.NewMetricsExerciser(baseExerciser, a.registry)
	exerciser := harness.NewTracedExerciser(metricsExerciser, a.tracer)

	a.harness, err = harness.NewHarness(a.store, exerciser, logger.Named("harness"), a.cfg.Harness)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	return a, nil
}

func (a *app) onClose(fn func(context.Context)) {
	a.cleanup = append(a.cleanup, fn)
}

// Close runs cleanups in reverse order and flushes the logger.
func (a *app) Close(ctx context.Context) {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i](ctx)
	}
	a.cleanup = nil
	_ = a.logger.Sync()
}

func newStore(cfg Config) (lwt.Store, error) {
	schema := cfg.Harness.Schema

	switch cfg.StoreBackend {
	case "cassandra":
		session, err := cassandra.Connect(cfg.Cassandra)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
		}
		s, err := cassandra.NewStore(session, schema, cfg.Cassandra)
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to create cassandra store: %w", err)
		}
		return s, nil
	case "couchbase":
		cluster, bucket, err := couchbase.Connect(cfg.Couchbase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Couchbase: %w", err)
		}
		s, err := couchbase.NewStore(cluster, bucket, schema, cfg.Couchbase.Consistency)
		if err != nil {
			cluster.Close(nil)
			return nil, fmt.Errorf("failed to create couchbase store: %w", err)
		}
		return s, nil
	case "memory":
		return lwtstore.NewMemory(schema)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", level, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

// startProfiling writes a CPU profile for the lifetime of the run and a heap
// profile when the returned stop function is called.
func startProfiling() (func(), error) {
	cpuProfile, err := os.Create("cpu.pprof")
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		cpuProfile.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		cpuProfile.Close()

		memProfile, err := os.Create("mem.pprof")
		if err != nil {
			log.Printf("could not create memory profile: %v", err)
			return
		}
		defer memProfile.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(memProfile); err != nil {
			log.Printf("could not write memory profile: %v", err)
		}
	}, nil
}
