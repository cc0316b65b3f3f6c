package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mockbank/bankbot/internal/bank"
	"github.com/mockbank/bankbot/internal/config"
	"github.com/mockbank/bankbot/internal/logger"
	"github.com/mockbank/bankbot/internal/metrics"
	"github.com/mockbank/bankbot/internal/session"
	"github.com/mockbank/bankbot/internal/storage"
	"github.com/mockbank/bankbot/internal/telegram"

	"log/slog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("bankbot: %v", err)
	}
}

func run() error {
	// .env is optional; explicit environment always wins.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	log.Printf("loading config: %s", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := storage.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(cfg.Database); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	metrics.Init()
	if addr := cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(addr); err != nil {
				logger.L.With("component", "metrics").Error("metrics listener stopped",
					slog.String("event", "metrics.serve"),
					slog.String("err", err.Error()),
				)
			}
		}()
	}

	ledger := bank.NewService(storage.NewPostgresAccounts(db))
	sessions := session.NewManager()
	handlers := telegram.NewHandlers(ledger, sessions)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	return telegram.Run(ctx, telegram.RunOptions{
		Config:   cfg,
		Handlers: handlers,
		OnStart: func(context.Context) error {
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			logger.L.With("component", "app").Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			return nil
		},
	})
}
