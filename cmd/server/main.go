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

	"github.com/jeevankumar-m/sustainedaway/config"
	"github.com/jeevankumar-m/sustainedaway/internal/bootstrap"
	httpDelivery "github.com/jeevankumar-m/sustainedaway/internal/delivery/http"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Default().Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logging.New(&logging.Config{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	})
	logging.SetDefault(log)

	log.Info("Starting SustainedAway server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"provider", cfg.AI.Provider,
		"cache", cfg.Cache.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	// Initialize generator, cache, history and metrics
	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn("Failed to release resources", "err", err)
		}
	}()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(components.Service)

	routerOpts := httpDelivery.RouterOptions{}
	if components.Metrics != nil {
		routerOpts.Metrics = components.Metrics.Handler()
		routerOpts.Middleware = append(routerOpts.Middleware, components.Metrics.GinMiddleware())
	}

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, routerOpts)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
