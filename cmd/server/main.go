package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/fairplay/internal/app"
	"example.com/fairplay/internal/config"
	"example.com/fairplay/internal/logger"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.New("text", "error", os.Stderr).Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
