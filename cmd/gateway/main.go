package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tarkov-gateway/internal/gateway"
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file (YAML or TOML)")
	dev := fs.Bool("dev", false, "Development logging")
	wait := fs.Duration("wait", 30*time.Second, "How long to wait for the version refresh")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address and keep running")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configPath != "" {
		if err := os.Setenv(config.FileEnv, *configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	cfg.Refresh.OnStart = true

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gw, err := gateway.New(cfg, gateway.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()

	waitCtx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()
	if err := gw.Refresh().Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Version refresh incomplete, using configured versions", zap.Error(err))
	}

	out, err := sonic.ConfigStd.MarshalIndent(gw.Versions(), "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, string(out)); err != nil {
		return err
	}

	if *metricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, *metricsAddr, gw, logger.Component("metrics"))
}

func serveMetrics(ctx context.Context, addr string, gw *gateway.Gateway, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gw.Metrics().Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
