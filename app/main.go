package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/profilezine/zinepress/app/api"
	"github.com/profilezine/zinepress/app/apify"
	"github.com/profilezine/zinepress/app/book"
	"github.com/profilezine/zinepress/app/cfg"
	"github.com/profilezine/zinepress/app/database"
	"github.com/profilezine/zinepress/app/ingest"
	"github.com/profilezine/zinepress/app/llm"
	"github.com/profilezine/zinepress/app/media"
	"github.com/profilezine/zinepress/app/presets"
	"github.com/profilezine/zinepress/app/runstore"
	"github.com/profilezine/zinepress/app/tasks"
)

func main() {
	// Optional .env preload; real environment variables win
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env file")
	}

	loaded, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if loaded == nil {
		// Help was shown, exit gracefully
		return
	}
	appCfg := cfg.Get()

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Zinepress", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open run registry database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)

	presetCache := presets.NewCache(appCfg.PresetsDir)
	if err := presetCache.Run(); err != nil {
		slog.Error("Failed to load scrape presets", "dir", appCfg.PresetsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Scrape presets loaded", "dir", appCfg.PresetsDir, "count", presetCache.GetPresetCount())

	store := runstore.NewStore(appCfg.DataDir)

	apifyClient := apify.NewClient(appCfg.ApifyToken,
		apify.WithBaseURL(appCfg.ApifyBaseUrl),
		apify.WithUserAgent(appCfg.UserAgent))

	downloader := media.NewDownloader(&http.Client{}, media.Policy{
		Concurrency:    appCfg.MediaConcurrency,
		MaxItems:       appCfg.MediaMaxItems,
		MaxRetries:     appCfg.MediaRetries,
		RequestTimeout: time.Duration(appCfg.MediaTimeout) * time.Second,
		UserAgent:      appCfg.UserAgent,
	})

	textGen := llm.NewClient(appCfg.LLMAPIKey,
		llm.WithBaseURL(appCfg.LLMBaseUrl),
		llm.WithModel(appCfg.LLMModel))

	builder := book.NewBuilder(store, textGen)

	slog.Info("Starting background workers", "count", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	pipeline := ingest.NewPipeline(apifyClient, store, downloader, builder, scheduler, ingest.Options{
		DatasetMaxAttempts: appCfg.DatasetMaxAttempts,
		DatasetRetryDelay:  time.Duration(appCfg.DatasetRetryDelay) * time.Second,
		BuildWaitTimeout:   time.Duration(appCfg.BuildWaitTimeout) * time.Second,
	})

	handler := api.NewHandler(pipeline, apifyClient, store, presetCache, runRepo,
		appCfg.ActorID, appCfg.BaseUrl)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
