// Tracker server - turns raw OCR frames into stable translated overlays
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/puritysb/yomilingo/internal/config"
	"github.com/puritysb/yomilingo/internal/metrics"
	"github.com/puritysb/yomilingo/internal/orchestrator"
	"github.com/puritysb/yomilingo/internal/server"
	"github.com/puritysb/yomilingo/internal/translate"
)

func main() {
	// Local overrides; missing .env is fine
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// Translation service client
	translator := translate.NewClient(cfg.TranslatorURL, cfg.TargetLanguage,
		time.Duration(cfg.TranslatorTimeout*float64(time.Second)))

	m := metrics.New()

	// Orchestrator owns the tracker; server owns the transports
	orch := orchestrator.New(cfg, translator, m)
	srv := server.New(orch, m)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("tracker server starting", "http", cfg.HTTPAddr, "translator", cfg.TranslatorURL, "mode", cfg.Mode)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	orch.Close()
	slog.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
