package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"libraryapi/db"
	"libraryapi/internal/app"
	"libraryapi/internal/config"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, reset, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()
	cfg, err := config.FromEnv()
	if err != nil {
		fatal("invalid configuration", err)
	}

	if *command == "create" {
		if *name == "" {
			fatal("name is required for 'create' command", nil)
		}
		if err := goose.Create(nil, migrationsDir(cfg), *name, "sql"); err != nil {
			fatal("failed to create migration", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	if cfg.UseMemoryStore() {
		fatal("DB_DSN is required", nil)
	}

	ctx := context.Background()
	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	switch *command {
	case "up":
		if err := db.Up(ctx, sqlDB); err != nil {
			fatal("failed to run migrations", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := db.Down(ctx, sqlDB); err != nil {
			fatal("failed to roll back migration", err)
		}
		fmt.Println("Migration rolled back successfully")
	case "reset":
		if err := db.Reset(ctx, sqlDB); err != nil {
			fatal("failed to reset migrations", err)
		}
		fmt.Println("Migrations reset successfully")
	case "status":
		if err := db.Status(ctx, sqlDB); err != nil {
			fatal("failed to check migration status", err)
		}
	default:
		fatal(fmt.Sprintf("unknown command %q, use: up, down, reset, status, create", *command), nil)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
