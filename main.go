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

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"fe-v2/internal/config"
	"fe-v2/internal/container"
	"fe-v2/internal/handler"
	"fe-v2/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flags := pflag.NewFlagSet("fe-v2", pflag.ExitOnError)
	flags.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json, console)")
	flags.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "session storage backend (memory, redis, sqlite, postgres, firestore)")
	flags.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "database file for the sqlite backend")
	_ = flags.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(map[string]interface{}{
		"port":            cfg.Port,
		"log_level":       cfg.LogLevel,
		"environment":     cfg.Environment,
		"storage_backend": cfg.StorageBackend,
	}).Info("Starting fe-v2 session portal")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("fe-v2 stopped with an error")
		os.Exit(1)
	}
	log.Info("Application shutdown complete")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.WithError(err).Error("Failed to close container")
		}
	}()

	// Restore the persisted session; protected pages show the loading
	// placeholder until it resolves
	if err := c.GetSessionService().Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(c),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		log.Info("HTTP server shutdown complete")
		return nil
	})

	return g.Wait()
}
