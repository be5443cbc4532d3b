// Package config loads runtime settings from the environment. Values in
// .env and .env.local are used only where the process environment does not
// already define them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DatabaseDSN    string
	DBTimeout      time.Duration
	DBMaxConns     int32
	LogLevel       slog.Level
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	BcryptCost     int
	EnableHSTS     bool
	MigrationsDir  string
}

// UseMemoryStore reports whether no database is configured.
func (c Config) UseMemoryStore() bool {
	return c.DatabaseDSN == ""
}

// ErrDatabaseRequired is returned by RequireDatabase when DB_DSN is empty.
var ErrDatabaseRequired = errors.New("DB_DSN is required: the in-memory store is discarded when the process exits")

// RequireDatabase fails for one-shot tools whose writes would be lost
// with the in-memory store.
func (c Config) RequireDatabase() error {
	if c.UseMemoryStore() {
		return ErrDatabaseRequired
	}
	return nil
}

func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the environment after loading the optional .env files.
func Load() (Config, error) {
	LoadEnvFiles()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          getEnv("APP_ADDR", ":8080"),
		DatabaseDSN:   os.Getenv("DB_DSN"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "db/migrations"),
		EnableHSTS:    os.Getenv("ENABLE_HSTS") == "true",
	}

	var err error
	if cfg.DBTimeout, err = getDuration("DB_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	maxConns, err := getInt("DB_MAX_CONNS", 8)
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 20); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 40); err != nil {
		return Config{}, err
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// RedactedDSN hides the credentials part of the database DSN.
func (c Config) RedactedDSN() string {
	dsn := c.DatabaseDSN
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
