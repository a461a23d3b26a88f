package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/localized-view-service/internal/auth"
	"github.com/UkralStul/localized-view-service/internal/config"
	"github.com/UkralStul/localized-view-service/internal/httpapi"
	"github.com/UkralStul/localized-view-service/internal/localize"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/UkralStul/localized-view-service/internal/storage/inmemory"
	"github.com/UkralStul/localized-view-service/internal/storage/postgres"
	"github.com/UkralStul/localized-view-service/internal/stream"
	"github.com/UkralStul/localized-view-service/internal/translator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if storageFlag != "" {
		cfg.Storage = storageFlag
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", zap.String("storage", cfg.Storage), zap.String("port", cfg.Port))

	var store storage.Storage
	if cfg.Storage == "postgres" {
		store, err = postgres.New(cfg.DatabaseURL, verbose)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	} else {
		mem := inmemory.New()
		// Заполним данными для тестов
		if err := fillWithMockData(ctx, mem); err != nil {
			return err
		}
		store = mem
	}

	provider, err := translator.New(ctx, cfg.Translator(), logger.Named("translator"))
	if err != nil {
		return err
	}
	logger.Info("translation provider ready",
		zap.String("provider", provider.Name()),
		zap.Bool("available", provider.Available()))

	hub := stream.NewHub(logger.Named("stream"))
	svc, err := localize.New(store, provider,
		localize.WithLogger(logger.Named("localize")),
		localize.WithCacheSize(cfg.CacheSize),
		localize.WithPublisher(hub))
	if err != nil {
		return err
	}

	api := &httpapi.Handler{
		Service: svc,
		Storage: store,
		Hub:     hub,
		Auth:    auth.NewVerifier(cfg.JWTSecret),
		Log:     logger.Named("http"),
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
