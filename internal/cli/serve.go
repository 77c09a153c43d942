package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/server"
)

var (
	serveAddr        string
	serveMetricsAddr string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (default: server.addr from config)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Prometheus listen address, \"off\" to disable (default: server.metrics_addr)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC SVT server",
	Long: "Runs accord as a central server over gRPC. Clients evaluate access and\n" +
		"submit SVTs remotely. The configuration file is hot-reloaded; with\n" +
		"feature.watch set, the feature source is reloaded on change.",
	RunE: runServe,
}

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, hash, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	metricsAddr := cfg.Server.MetricsAddr
	if serveMetricsAddr != "" {
		metricsAddr = serveMetricsAddr
	}

	m := metrics.New()

	var (
		source feature.Source = featureSource(cfg)
		cache  *feature.Cache
	)
	if cfg.Feature.Watch {
		cache, err = feature.NewCache(cfg.Feature.Path)
		if err != nil {
			return err
		}
		source = cache
	}

	sinks, closeSinks, err := openSinks(cfg, m)
	if err != nil {
		return err
	}
	defer closeSinks()

	srv, err := server.New(server.Config{
		Addr:       addr,
		ConfigPath: resolvedConfigPath(),
		Source:     source,
		Ledger:     sinks.Ledger,
		Publisher:  sinks.Publisher,
		Auditor:    sinks.Auditor,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Serve)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		srv.GracefulStop()
		return nil
	})

	reloader, err := server.NewReloader(srv, []string{resolvedConfigPath()})
	if err != nil {
		logger.Warn("hot-reload disabled", zap.Error(err))
	} else {
		g.Go(func() error { return reloader.Run(gctx) })
	}

	if cache != nil {
		w := feature.NewWatcher(cache,
			feature.WithLogger(logger),
			feature.WithDebounce(cfg.Feature.Debounce))
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				logger.Warn("feature watch disabled", zap.Error(err))
			}
			return nil
		})
	}

	if metricsAddr != "" && metricsAddr != "off" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		hs := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}
		g.Go(func() error {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	logger.Info("accord server listening",
		zap.String("addr", addr),
		zap.String("metrics_addr", metricsAddr),
		zap.String("config", resolvedConfigPath()),
		zap.String("policy_hash", hash),
		zap.Bool("feature_watch", cfg.Feature.Watch))
	fmt.Fprintf(os.Stderr, "accord server listening on %s\n", addr)

	return g.Wait()
}
