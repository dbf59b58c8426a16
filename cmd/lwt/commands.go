package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lwt/internal/lwt/metrics"
)

// RootOptions holds global flags for all commands. Flags that are set
// override the environment.
type RootOptions struct {
	Strict   bool
	Workers  int
	LogLevel string

	cfg Config
}

// NewRootCommand creates the root command for the lwt CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "lwt",
		Short:        "Exercise lightweight transactions against a CAS-capable store",
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("strict") {
				cfg.Harness.Strict = opts.Strict
			}
			if flags.Changed("workers") {
				cfg.Harness.Workers = opts.Workers
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = opts.LogLevel
			}

			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.Strict, "strict", true, "abort on the first CAS violation")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 1, "number of keys exercised concurrently")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// NewRunCommand runs the full scenario and prints the report.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reset, populate, exercise conditional updates and tear down",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Profile {
				stop, err := startProfiling()
				if err != nil {
					return err
				}
				defer stop()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if opts.cfg.Metrics.Enabled {
				stopMetrics := serveMetrics(ctx, a)
				defer stopMetrics()
			}

			now := time.Now()
			report, runErr := a.harness.Run(ctx)
			a.registry.SetRecordsPopulated(report.Records)

			if err := report.Render(cmd.OutOrStdout()); err != nil {
				return err
			}
			if runErr != nil {
				a.logger.Error("run failed", zap.Error(runErr))
				return runErr
			}
			if !report.Passed() {
				return fmt.Errorf("run finished with %d CAS violations", len(report.Violations))
			}

			a.logger.Info("lightweight transaction test finished", zap.Duration("elapsed", time.Since(now)))
			return nil
		},
	}
}

// NewResetCommand provisions a fresh namespace and leaves it in place.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the namespace and table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			return a.harness.Reset(cmd.Context())
		},
	}
}

// NewDropCommand removes the namespace, e.g. after a run with KEEP_NAMESPACE.
func NewDropCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.store.Drop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to drop namespace: %w", err)
			}

			a.logger.Info("namespace dropped", zap.String("namespace", opts.cfg.Harness.Schema.Namespace))
			return nil
		},
	}
}

// serveMetrics starts the metrics server in the background and returns a
// function that stops it.
func serveMetrics(ctx context.Context, a *app) func() {
	server := metrics.NewServer(a.cfg.Metrics, a.registry, a.logger)

	go func() {
		if err := server.Start(ctx); err != nil {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	a.logger.Info("metrics server started",
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", a.cfg.Metrics.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", a.cfg.Metrics.Port)),
	)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			a.logger.Error("failed to stop metrics server", zap.Error(err))
		}
	}
}
