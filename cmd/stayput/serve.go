package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/stayput/internal/config"
	"github.com/groblegark/stayput/internal/events"
	"github.com/groblegark/stayput/internal/fleet"
	"github.com/groblegark/stayput/internal/mcbridge"
	"github.com/groblegark/stayput/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleet manager daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// One NATS connection serves both the game bridge and the
		// lifecycle event bus.
		nc, err := nats.Connect(cfg.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return err
		}
		defer nc.Close()

		publisher, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		dialer := mcbridge.NewDialer(nc, mcbridge.ConnectOptions{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Auth:     cfg.Auth,
			Version:  cfg.Version,
			Password: cfg.Password,
		}, logger)

		mgr := fleet.New(dialer, publisher, logger, cfg.Fleet, cfg.Username)
		mgr.Start()
		logger.Info("fleet manager started",
			"primary", cfg.Username,
			"slots", len(cfg.Fleet.Slots),
			"host", cfg.Host,
			"port", cfg.Port,
		)

		// Optional HTTP status endpoint.
		var httpServer *http.Server
		if cfg.HTTPAddr != "" {
			httpServer = &http.Server{
				Addr:    cfg.HTTPAddr,
				Handler: server.New(mgr, logger).Handler(),
			}
			go func() {
				logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", "err", err)
				}
			}()
		}

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		mgr.Shutdown()
		logger.Info("fleet manager stopped")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			logger.Info("HTTP server stopped")
		}

		logger.Info("shutdown complete")
		return nil
	},
}
