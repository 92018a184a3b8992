package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/ridgewalk/internal/engine"
	"github.com/talgya/ridgewalk/internal/world"
)

// config is the service configuration, read from the environment.
type config struct {
	DBPath          string
	Port            int
	AdminKey        string
	RandomOrgKey    string
	Seed            int64  // 0 draws a fresh seed
	Terrain         string // "noise" or "valley"
	Rows            int
	Columns         int
	Scouts          int
	MaxTicks        uint64
	TickInterval    time.Duration
	CheckpointEvery uint64
	LogLevel        slog.Level
}

func loadConfig() (config, error) {
	gen := world.DefaultGenConfig()
	cfg := config{
		DBPath:          envOrDefault("RIDGEWALK_DB", "data/ridgewalk.db"),
		Port:            envIntOrDefault("RIDGEWALK_PORT", 8080),
		AdminKey:        os.Getenv("RIDGEWALK_ADMIN_KEY"),
		RandomOrgKey:    os.Getenv("RANDOM_ORG_API_KEY"),
		Seed:            int64(envIntOrDefault("RIDGEWALK_SEED", 42)),
		Terrain:         strings.ToLower(envOrDefault("RIDGEWALK_TERRAIN", "noise")),
		Rows:            envIntOrDefault("RIDGEWALK_ROWS", gen.Rows),
		Columns:         envIntOrDefault("RIDGEWALK_COLUMNS", gen.Columns),
		Scouts:          envIntOrDefault("RIDGEWALK_SCOUTS", 4),
		TickInterval:    time.Duration(envIntOrDefault("RIDGEWALK_TICK_MS", 100)) * time.Millisecond,
		CheckpointEvery: engine.DefaultCheckpointEvery,
	}

	if n := envIntOrDefault("RIDGEWALK_MAX_TICKS", 0); n > 0 {
		cfg.MaxTicks = uint64(n)
	}
	if n := envIntOrDefault("RIDGEWALK_CHECKPOINT", -1); n >= 0 {
		cfg.CheckpointEvery = uint64(n)
	}
	if lvl := os.Getenv("RIDGEWALK_LOG_LEVEL"); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return cfg, fmt.Errorf("RIDGEWALK_LOG_LEVEL: %w", err)
		}
	}

	switch {
	case cfg.Terrain != "noise" && cfg.Terrain != "valley":
		return cfg, fmt.Errorf("RIDGEWALK_TERRAIN must be noise or valley, got %q", cfg.Terrain)
	case cfg.Rows < 1 || cfg.Columns < 1:
		return cfg, fmt.Errorf("terrain size must be positive, got %dx%d", cfg.Rows, cfg.Columns)
	case cfg.Scouts < 1:
		return cfg, fmt.Errorf("RIDGEWALK_SCOUTS must be at least 1, got %d", cfg.Scouts)
	case cfg.TickInterval < 0:
		return cfg, fmt.Errorf("RIDGEWALK_TICK_MS must not be negative")
	}
	return cfg, nil
}

// recordsTrail reports whether steps should be queued for the trail table.
// Only checkpoints drain the queue, so without them nothing is recorded.
func (c config) recordsTrail() bool {
	return c.CheckpointEvery > 0
}

// buildField produces the terrain named by cfg. Noise terrain is
// regenerated deterministically from the seed on every start.
func buildField(cfg config) (*world.Field, error) {
	if cfg.Terrain == "valley" {
		return world.Valley(), nil
	}
	gen := world.DefaultGenConfig()
	gen.Rows = cfg.Rows
	gen.Columns = cfg.Columns
	gen.Seed = cfg.Seed
	return world.Generate(gen)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
