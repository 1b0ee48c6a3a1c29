package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/arkiv/inscription-indexer/internal/config"
	"github.com/arkiv/inscription-indexer/internal/plugin"
	"github.com/arkiv/inscription-indexer/internal/source"
	"github.com/arkiv/inscription-indexer/internal/store"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	configPath string
	logLevel   string
}

type runOptions struct {
	*rootOptions
	addr     string
	backfill int
	interval time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "inscription-indexer",
		Short: "Persist inscription program activity into Postgres",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
			return nil
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML or JSON configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	return cmd
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the worker pool fed by the synthetic transaction source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexer(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr(), "listen address for /healthz and /metrics")
	cmd.Flags().IntVar(&opts.backfill, "backfill", 100, "transactions replayed before the end of startup is signalled")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "interval between live transactions")
	return cmd
}

func newMigrateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the inscriptions table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := store.EnsureSchema(cmd.Context(), store.OptionsFromConfig(cfg)); err != nil {
				return err
			}
			slog.Info("schema ready")
			return nil
		},
	}
}

func runIndexer(ctx context.Context, opts *runOptions) error {
	logger := slog.Default()
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.CreateSchema {
		if err := store.EnsureSchema(ctx, store.OptionsFromConfig(cfg)); err != nil {
			return err
		}
	}

	plug := plugin.New(plugin.WithLogger(logger))
	if err := plug.Load(cfg); err != nil {
		return err
	}
	defer plug.OnUnload()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src := source.NewSynthetic(cfg.Program(), time.Now().UnixNano())
	srcDone := make(chan struct{})
	go func() {
		defer close(srcDone)
		src.Run(ctx, plug, opts.backfill, opts.interval, logger)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", newHealthzHandler(plug.Ready))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: opts.addr, Handler: instrument(mux)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "err", err)
			cancel() // trigger shutdown so run can return
		}
	}()
	slog.Info("starting", "addr", opts.addr, "workers", cfg.Threads)

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	<-srcDone
	return nil
}

// defaultAddr honours PORT=8080 or PORT=:8080.
func defaultAddr() string {
	if p := strings.TrimPrefix(os.Getenv("PORT"), ":"); p != "" {
		return ":" + p
	}
	return ":8080"
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
