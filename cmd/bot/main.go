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

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/api"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/bot"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/clickup"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/config"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/session"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/store"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/telegram"
)

func main() {
	// Logger; the level is raised once the config is loaded.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())

	// SQLite
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Stores
	taskStore := store.NewTaskStore(db)
	ledger := store.NewLedgerStore(db)
	sessions := session.NewStore(cfg.SessionFile, logger)
	dialogs := session.NewDialogs()

	// Remote provider
	provider := clickup.NewClient(cfg.ClickUpBaseURL, cfg.ClickUpToken, logger)

	// Orchestrator; the shutdown hook feeds the same channel signals do.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	requestShutdown := func() { done <- syscall.SIGTERM }

	admins := bot.NewAllowList(cfg.AdminSalt, cfg.AdminIDs)
	orch := bot.New(sessions, dialogs, taskStore, ledger, provider, admins, requestShutdown, logger)

	// Transport
	transport, err := telegram.New(cfg.TelegramToken, orch, logger)
	if err != nil {
		logger.Error("failed to create telegram transport", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go transport.Run(ctx)

	// Ops HTTP surface
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(db, taskStore, ledger, cfg.APIKey, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info("ops server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
		}
	}()

	// Periodic session flush; a failed write stays dirty and retries next tick.
	flushTicker := time.NewTicker(cfg.FlushInterval)
	defer flushTicker.Stop()
	go func() {
		for range flushTicker.C {
			if wrote, err := sessions.FlushIfDirty(); err == nil && wrote {
				logger.Debug("session snapshot flushed")
			}
		}
	}()

	<-done
	logger.Info("shutting down...")
	cancel()

	if err := sessions.ForceFlush(); err != nil {
		logger.Error("final session flush failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("bot stopped")
}
