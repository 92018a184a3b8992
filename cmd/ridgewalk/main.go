// Command ridgewalk runs a scouting expedition over generated terrain and
// serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ridgewalk/internal/agents"
	"github.com/talgya/ridgewalk/internal/api"
	"github.com/talgya/ridgewalk/internal/engine"
	"github.com/talgya/ridgewalk/internal/entropy"
	"github.com/talgya/ridgewalk/internal/persistence"
	"github.com/talgya/ridgewalk/internal/world"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Ridgewalk: terrain scouting expedition",
		"terrain", cfg.Terrain,
		"seed", cfg.Seed,
		"scouts", cfg.Scouts,
	)

	// ── Database ──────────────────────────────────────────────────────
	if !strings.HasPrefix(cfg.DBPath, "postgres") {
		os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "driver", db.Driver())

	// ── Terrain (always regenerated, deterministic from config) ──────
	if cfg.Seed == 0 && cfg.Terrain == "noise" {
		cfg.Seed = resolveSeed(db, cfg.RandomOrgKey)
	}
	field, err := buildField(cfg)
	if err != nil {
		slog.Error("failed to build terrain", "error", err)
		os.Exit(1)
	}
	summary := world.TerrainCounts(field)
	slog.Info("terrain ready",
		"field", field.String(),
		"cells", humanize.Comma(int64(summary.Cells)),
		"submerged", humanize.Comma(int64(summary.Submerged)),
		"solid", humanize.Comma(int64(summary.Solid)),
		"max_blocks", summary.MaxBlocks,
	)

	// ── Load or spawn scouts ─────────────────────────────────────────
	var scouts []*agents.Scout
	var startTick uint64
	var runID string

	spawner := agents.NewSpawner(cfg.Seed)

	if db.HasWorldState() {
		slog.Info("found saved expedition, loading...")

		scouts, err = db.LoadScouts(field)
		if err != nil {
			slog.Error("failed to load scouts (terrain settings changed?)", "error", err)
			os.Exit(1)
		}
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		runID, err = db.ResumeRunID()
		if err != nil {
			slog.Error("failed to read run id", "error", err)
			os.Exit(1)
		}

		var maxID agents.ScoutID
		for _, s := range scouts {
			if s.ID > maxID {
				maxID = s.ID
			}
		}
		spawner.SetNextID(maxID + 1)

		slog.Info("expedition restored", "scouts", len(scouts), "tick", startTick, "run", runID)
	} else {
		slog.Info("no saved expedition, spawning scouts...")
		scouts, err = spawner.SpawnScouts(field, cfg.Scouts)
		if err != nil {
			slog.Error("failed to spawn scouts", "error", err)
			os.Exit(1)
		}
		runID = persistence.NewRunID()
		for _, s := range scouts {
			slog.Info("scout deployed", "id", s.ID, "name", s.Name, "at", s.Position(), "facing", s.Orientation())
		}
	}

	if err := db.SaveTerrain(field); err != nil {
		slog.Error("terrain save failed", "error", err)
	}

	// ── Expedition ───────────────────────────────────────────────────
	x := engine.NewExpedition(field, scouts)
	x.SetLastTick(startTick)
	x.KeepPending = cfg.recordsTrail()
	if !x.KeepPending {
		slog.Warn("RIDGEWALK_CHECKPOINT is 0, step trail will not be recorded")
	}

	if startTick == 0 {
		if err := db.SaveExpedition(runID, x); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine()
	eng.SetTick(startTick)
	eng.Interval = cfg.TickInterval
	eng.MaxTicks = cfg.MaxTicks
	eng.CheckpointEvery = cfg.CheckpointEvery

	eng.OnTick = x.TickStep
	eng.Done = x.AllLooping
	eng.OnCheckpoint = func(tick uint64) {
		x.Checkpoint(tick)
		if err := db.SaveExpedition(runID, x); err != nil {
			slog.Error("checkpoint save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("RIDGEWALK_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Exp:      x,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
		RunID:    runID,
	}
	apiServer.Start()
	x.OnEvent = apiServer.Hub.Broadcast

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nRidgewalk is out: %d scouts on %s.\n", len(scouts), field)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if startTick > 0 {
		fmt.Printf("Resuming run %s from tick %s\n", runID, humanize.Comma(int64(startTick)))
	}
	fmt.Println("Starting expedition... (Ctrl+C to stop)")

	reason := eng.Run(ctx)

	// Final save on shutdown.
	slog.Info("final save...")
	x.Checkpoint(eng.Tick())
	if err := db.SaveExpedition(runID, x); err != nil {
		slog.Error("final save failed", "error", err)
	}

	// A finished expedition stays observable until interrupted.
	if reason == engine.StopDone || reason == engine.StopBudget {
		fmt.Println("Expedition finished. API still serving... (Ctrl+C to exit)")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API shutdown", "error", err)
	}

	fmt.Println("Expedition stopped. State saved.")
}

// resolveSeed reuses the seed of a saved noise terrain so a resumed
// expedition walks the same ground, and otherwise draws a fresh one.
func resolveSeed(db *persistence.DB, randomOrgKey string) int64 {
	if backing, err := db.GetMeta("terrain_backing"); err == nil && backing == world.BackingNoise.String() {
		if v, err := db.GetMeta("terrain_seed"); err == nil {
			if seed, err := strconv.ParseInt(v, 10, 64); err == nil && seed != 0 {
				slog.Info("reusing saved terrain seed", "seed", seed)
				return seed
			}
		}
	}

	client := entropy.NewClient(randomOrgKey)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	seed := client.Seed(ctx)
	slog.Info("drew terrain seed", "seed", seed, "random_org", client.Enabled())
	return seed
}
