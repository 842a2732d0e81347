package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/bootstrap"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/bot"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/config"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/membership"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/payment"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/repository"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/router"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// --- Payment attempt deduper (Redis with in-memory fallback) ---
	dedup, dedupErr := membership.NewAttemptDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		15*time.Minute,
	)
	if dedupErr != nil {
		logger.Warn("Redis unavailable for payment dedup, using in-memory fallback", zap.Error(dedupErr))
	}

	// --- Payment gateway ---
	memberRepo := repository.NewMemberRepository(db)
	gateway := payment.NewZarinPalGateway(cfg.Payment.ZarinPal.Merchant, cfg.Payment.ZarinPal.Sandbox)
	adapter := payment.NewAdapter(
		gateway,
		memberRepo,
		cfg.Payment.ZarinPal.Amount,
		cfg.Payment.ZarinPal.CallbackURL,
		logger,
	)

	// --- Bot + membership state machine ---
	teleBot, err := bot.New(cfg, memberRepo, adapter, dedup, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// --- Echo (gateway callback listener) ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, teleBot.Service(), logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting callback server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Callback server stopped", zap.Error(err))
		}
	}()

	// One-time seed of admins and known users; a failure is logged, not fatal.
	if err := teleBot.SyncChannelMembers(); err != nil {
		logger.Error("Failed to sync channel members", zap.Error(err))
	}

	go teleBot.Start()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	teleBot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server exited")
}
