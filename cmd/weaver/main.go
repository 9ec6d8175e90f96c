package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"Weaver/internal/app"
	"Weaver/internal/config"
	"Weaver/internal/logging"
	"Weaver/internal/observe"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "weaver",
		Short:         "Build a 3D knowledge graph of Wikipedia topics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $WEAVER_CONFIG)")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newCollectCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Collect, enrich and write the node document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx)
			})
		},
	}
}

func newCollectCmd(configPath *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Only collect article summaries and write them as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, func(ctx context.Context, a *app.Application) error {
				return a.Collect(ctx, out)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default pipeline.collectPath)")
	return cmd
}

// withApp loads config, sets up logging and tracing, and runs fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(parent context.Context, configPath string, fn func(context.Context, *app.Application) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Tracing.Enabled {
		shutdown := observe.InitTracing(observe.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			Exporter:       observe.NewLogExporter(logger.With("component", "tracing")),
		})
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return err
	}
	if err := fn(ctx, application); err != nil {
		logger.Error("pipeline failed", slog.Any("error", err))
		return err
	}
	return nil
}
