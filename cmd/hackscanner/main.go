package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"HackathonScanner/internal/app"
	"HackathonScanner/internal/config"
	"HackathonScanner/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if *once {
		defer func() { _ = application.Close() }()
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("ingestion run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
