package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"peelojuice-staff/internal/app"
	"peelojuice-staff/internal/config"
	"peelojuice-staff/internal/logger"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.New(logger.NewPrettyHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		return 1
	}

	// Initialize custom logger with colors
	logHandler := logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{
		Level: logger.ParseLevel(cfg.LogLevel),
	})
	slog.SetDefault(slog.New(logHandler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, app.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, version)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		return 1
	}
	defer application.Close()

	return application.Run(ctx, os.Args[1:])
}
