package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"timeframechart/internal/charts"
	"timeframechart/internal/config"
	"timeframechart/internal/fetchers"
	"timeframechart/internal/logger"
	"timeframechart/internal/pages"
	"timeframechart/internal/server"
	"timeframechart/internal/storage"
	"timeframechart/internal/view"
)

// newServer wires storage, the view registry and the page builder for cfg
func newServer(ctx context.Context, cfg *config.Config) (*server.Server, error) {
	if err := charts.Setup(); err != nil {
		return nil, err
	}

	store, err := storage.NewStorageClient(ctx, storage.DeploymentMode(cfg.StorageMode), cfg)
	if err != nil {
		return nil, err
	}

	builder := pages.NewBuilder(cfg.ChartTitle)
	if cfg.PageNotesFile != "" {
		notes, err := os.ReadFile(cfg.PageNotesFile)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to read page notes: %w", err)
		}
		if err := builder.SetNotes(string(notes)); err != nil {
			store.Close()
			return nil, err
		}
	}

	fetcher := fetchers.NewDataFetcher(cfg.FetchTimeout)
	dataURL := cfg.DataSourceURL()
	chartOpts := charts.Options{
		Title:  cfg.ChartTitle,
		Width:  cfg.ChartWidth,
		Height: cfg.ChartHeight,
	}
	registry := view.NewRegistry(cfg.ViewIdleTTL, func(id string) *view.Model {
		return view.New(id, fetcher, dataURL, chartOpts)
	})

	return server.NewServer(cfg, store, registry, builder), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; the real environment always wins
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("main")

	log.Info("Starting timeframe chart service", logger.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"storage":     cfg.StorageMode,
		"data_url":    cfg.DataSourceURL(),
		"version":     config.GetVersion(),
	})

	srv, err := newServer(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create server", err)
	}
	defer srv.Close()

	go srv.Views.Run(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", logger.Fields{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped")
	logger.GetGlobalLogger().Sync()
}
