package main

import (
	"libraryapi/internal/config"
)

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	config.LoadEnvFiles()
}

func migrationsDir(cfg config.Config) string {
	if cfg.MigrationsDir != "" {
		return cfg.MigrationsDir
	}
	return "db/migrations"
}
