package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"libraryapi/internal/app"
	"libraryapi/internal/config"
	"libraryapi/internal/entity"
	"libraryapi/internal/usecase"
)

type account struct {
	username string
	password string
	role     entity.Role
}

var defaultAccounts = []account{
	{username: "admin", password: "admin", role: entity.RoleAdmin},
	{username: "user1", password: "user1", role: entity.RoleUser},
}

func main() {
	count := flag.Int("books", 100, "Number of sample books to generate")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := cfg.RequireDatabase(); err != nil {
		logger.Error("refusing to seed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	library, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer library.Close()

	rng := rand.New(rand.NewPCG(1, 2))
	if err := seed(ctx, library.Catalog, library.Patron, *count, rng, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

// seed creates the default accounts and count generated books. Entries that
// already exist are left untouched, so it is safe to run repeatedly.
func seed(ctx context.Context, catalog *usecase.CatalogUsecase, patron *usecase.PatronUsecase, count int, rng *rand.Rand, logger *slog.Logger) error {
	for _, a := range defaultAccounts {
		if err := seedAccount(ctx, patron, a); err != nil {
			return err
		}
	}

	inserted := 0
	for i := range count {
		title := fmt.Sprintf("Book Title %d - %s", i+1, randomWord(rng))
		author := fmt.Sprintf("%s %s", randomWord(rng), randomWord(rng))
		_, err := catalog.AddBook(ctx, title, author)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, usecase.ErrConflict):
		default:
			return fmt.Errorf("add book %q: %w", title, err)
		}
		if (i+1)%1000 == 0 {
			logger.Info("seeding books", "done", i+1, "total", count)
		}
	}

	logger.Info("seed complete", "books_inserted", inserted)
	return nil
}

func seedAccount(ctx context.Context, patron *usecase.PatronUsecase, a account) error {
	existing, err := patron.GetUserByUsername(ctx, a.username)
	switch {
	case err == nil:
		if existing.Role == a.role {
			return nil
		}
	case errors.Is(err, usecase.ErrNotFound):
		if _, err := patron.AddUser(ctx, a.username, a.password); err != nil {
			return fmt.Errorf("add user %q: %w", a.username, err)
		}
		if a.role == entity.RoleUser {
			return nil
		}
	default:
		return err
	}

	// Also repairs an account left with the wrong role by an interrupted run.
	if _, err := patron.UpdateUserByAdmin(ctx, a.username, a.username, a.role); err != nil {
		return fmt.Errorf("set role of %q: %w", a.username, err)
	}
	return nil
}

var words = []string{
	"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
	"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
	"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
	"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
}

func randomWord(rng *rand.Rand) string {
	return words[rng.IntN(len(words))]
}
