package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/adapter"
	"github.com/nixxel-company-limited/escpos-printout-server/api"
	"github.com/nixxel-company-limited/escpos-printout-server/config"
	"github.com/nixxel-company-limited/escpos-printout-server/logging"
	"github.com/nixxel-company-limited/escpos-printout-server/render"
	"github.com/nixxel-company-limited/escpos-printout-server/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the TCP print server and the optional HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	device, err := adapter.New(cfg.Printer, logger)
	if err != nil {
		return fmt.Errorf("create printer adapter: %w", err)
	}
	if obs, ok := device.(adapter.Observable); ok {
		for _, t := range []adapter.EventType{adapter.EventConnect, adapter.EventClose, adapter.EventDetach} {
			obs.On(t, func(e adapter.Event) {
				logger.Info("Printer event", zap.Stringer("event", e.Type), zap.String("device", e.Device), zap.Error(e.Error))
			})
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline := render.New(cfg.Print, render.NewMetrics(reg), logger)

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxDocumentSize(cfg.Server.MaxDocumentSize),
	}
	if cfg.Server.Mode == config.ModePrintout {
		opts = append(opts, server.WithRenderer(pipeline))
	}
	svr := server.New(device, cfg.Server.Address, opts...)
	if err := svr.StartAsync(); err != nil {
		device.Close()
		return err
	}

	var httpSrv *http.Server
	httpErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           api.NewHandler(pipeline, device, reg, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP API listening", zap.String("address", cfg.HTTP.Address))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-httpErr:
		logger.Error("HTTP API failed", zap.Error(runErr))
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP API shutdown", zap.Error(err))
		}
	}
	if err := svr.Stop(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
