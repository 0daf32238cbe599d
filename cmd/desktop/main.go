// Package main provides the local HTTP server for desktop platforms.
// The desktop UI talks to it via REST and WebSocket on localhost:8090.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kimhsiao/fieldcapture/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/fieldcapture/backend/internal/app"
	"github.com/kimhsiao/fieldcapture/backend/internal/config"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.Error("Desktop server failed", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := NewWSHub()
	defer hub.Close()
	unsubscribe := hub.Attach(a.Coordinator)
	defer unsubscribe()

	if err := a.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: newRouter(
			handlers.NewRecordHandler(a.Capture),
			handlers.NewSyncHandler(a.Capture, a.Coordinator),
			hub,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Desktop server starting", map[string]interface{}{
			"address": cfg.HTTP.Address,
			"version": Version,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("Desktop server shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
