package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/config"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/email"
	"github.com/dukerupert/magiclink/internal/encryption"
	"github.com/dukerupert/magiclink/internal/logging"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	dialect, err := database.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		slog.Error("invalid database driver", "error", err)
		os.Exit(1)
	}
	database.WarnIfRemote(logger, dialect, cfg.DatabaseURL, cfg.Production())

	db, err := database.Open(dialect, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	box, err := encryption.New(cfg.MagicLinkSecret)
	if err != nil {
		slog.Error("failed to init encryption", "error", err)
		os.Exit(1)
	}

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, email.WithLinkTTL(auth.LinkExpiration))
	if !emailClient.Configured() {
		slog.Warn("POSTMARK_TOKEN not set, magic links will be logged instead of emailed")
	}

	srv := server.New(db, box, emailClient, server.Config{
		BaseURL:       cfg.BaseURL,
		CookieSecure:  cfg.CookieSecure,
		SessionSecret: cfg.SessionSecret,
	}, clock.Real{}, metrics.NewCollector(), logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(cfg.SessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(cleanupCtx, time.Now()); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("server starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
