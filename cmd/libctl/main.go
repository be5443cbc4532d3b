package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"libraryapi/internal/app"
	"libraryapi/internal/config"
)

func main() {
	open := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		return app.New(ctx, cfg, logger)
	}

	if err := newRootCmd(open, os.Stdin).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
