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

	"github.com/zhurnal-dev/zhurnal/app/api"
	"github.com/zhurnal-dev/zhurnal/app/cfg"
	"github.com/zhurnal-dev/zhurnal/app/compositor"
	"github.com/zhurnal-dev/zhurnal/app/database"
	"github.com/zhurnal-dev/zhurnal/app/docx"
	"github.com/zhurnal-dev/zhurnal/app/extractor"
	"github.com/zhurnal-dev/zhurnal/app/journal"
	"github.com/zhurnal-dev/zhurnal/app/tasks"
)

func main() {
	// A local .env is optional; real deployments configure the environment.
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Zhurnal server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	formatCache := journal.NewFormatCache(appCfg.FormatsDir)
	if err := formatCache.Run(); err != nil {
		slog.Error("Failed to load page formats", "dir", appCfg.FormatsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Page formats loaded", "count", len(formatCache.GetFormats()))

	sessionRepo := database.NewSessionRepository(db)
	articleRepo := database.NewArticleRepository(db)
	templateRepo := database.NewTemplateRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	taskRepo := database.NewTaskRepository(db)
	archiveRepo := database.NewArchiveRepository(db)

	parser := docx.NewParser()
	metaExtractor := extractor.NewExtractor(appCfg.OpenRouterBaseUrl, appCfg.AIModel, appCfg.OpenRouterAPIKey)
	if appCfg.OpenRouterAPIKey == "" {
		slog.Warn("OPENROUTER_API_KEY not set, metadata extraction falls back to heuristics")
	}
	comp := compositor.NewCompositor(appCfg.FontPath)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(sessionRepo, articleRepo, templateRepo)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(sessionRepo, articleRepo, templateRepo, settingsRepo,
		taskRepo, archiveRepo, formatCache, parser, comp, metaExtractor, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
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
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer; in-flight generations observe the
	// cancelled context and fail with a cancellation message.
	slog.Info("Shutdown complete")
}
