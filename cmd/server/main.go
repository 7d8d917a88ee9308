package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inamate/emojikit/internal/api"
	"github.com/inamate/emojikit/internal/config"
	"github.com/inamate/emojikit/internal/document"
	"github.com/inamate/emojikit/internal/engine"
	"github.com/inamate/emojikit/internal/export"
	"github.com/inamate/emojikit/internal/live"
	"github.com/inamate/emojikit/internal/render"
	"github.com/inamate/emojikit/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.SeedSamples {
		n, err := store.Seed(ctx, st, document.NewSampleDocuments(cfg.CanvasSize))
		if err != nil {
			slog.Error("seed samples", "error", err)
			os.Exit(1)
		}
		slog.Info("samples seeded", "count", n)
	}

	fonts, err := render.NewFontLibrary(cfg.FontCatalog, logger)
	if err != nil {
		slog.Error("load fonts", "error", err)
		os.Exit(1)
	}
	background, err := render.ParseColor(cfg.Background)
	if err != nil {
		slog.Error("parse background", "error", err)
		os.Exit(1)
	}
	rasterizer := render.NewRasterizer(fonts, background, logger)

	registry := api.NewRegistry(st,
		engine.WithCanvasSize(cfg.CanvasSize),
		engine.WithMeasurer(rasterizer),
		engine.WithLogger(logger),
	)

	var target export.Target
	if cfg.ExportDir != "" {
		target = export.NewDirTarget(cfg.ExportDir)
	}

	hub := live.NewHub(fonts.Names(), live.WithSaver(registry.Persist))
	go hub.Run()

	handler := api.NewHandler(api.HandlerConfig{
		Registry:      registry,
		Exporter:      export.NewExporter(rasterizer, logger),
		Target:        target,
		Hub:           hub,
		Fonts:         fonts.Names(),
		ThumbnailSize: cfg.ThumbnailSize,
		Origins:       cfg.Origins(),
		WSOrigins:     cfg.OriginPatterns(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}

		slog.Info("saving open emojis")
		if err := registry.Close(shutdownCtx); err != nil {
			slog.Error("save on shutdown", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

// openStore uses Postgres when DATABASE_URL is set and memory otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("using in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg, err := store.NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
