// Command terrainview previews a terrain and one scout's walk as ASCII.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ridgewalk/internal/agents"
	"github.com/talgya/ridgewalk/internal/engine"
	"github.com/talgya/ridgewalk/internal/world"
)

func main() {
	terrain := flag.String("terrain", "noise", "terrain kind: noise or valley")
	seed := flag.Int64("seed", 42, "noise seed (0 picks one at random)")
	rows := flag.Int("rows", 24, "noise terrain rows")
	cols := flag.Int("cols", 48, "noise terrain columns")
	steps := flag.Uint64("steps", 2000, "step budget")
	heading := flag.String("facing", "", "initial heading (default: spawner's pick)")
	trail := flag.Bool("trail", true, "mark visited cells with '*'")
	verbose := flag.Bool("v", false, "log every step")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*terrain, *seed, *rows, *cols, *steps, *heading, *trail); err != nil {
		slog.Error("terrainview failed", "error", err)
		os.Exit(1)
	}
}

func run(terrain string, seed int64, rows, cols int, steps uint64, heading string, showTrail bool) error {
	var f *world.Field
	switch terrain {
	case "valley":
		f = world.Valley()
	case "noise":
		cfg := world.DefaultGenConfig()
		cfg.Rows, cfg.Columns, cfg.Seed = rows, cols, seed
		var err error
		if f, err = world.Generate(cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown terrain %q", terrain)
	}

	party, err := agents.NewSpawner(seed).SpawnScouts(f, 1)
	if err != nil {
		return err
	}
	s := party[0]
	if heading != "" {
		facing, err := world.ParseDirection(heading)
		if err != nil {
			return err
		}
		for s.Orientation() != facing {
			s.TurnRight()
		}
	}
	start, facing := s.Position(), s.Orientation()

	x := engine.NewExpedition(f, []*agents.Scout{s})
	visited := map[world.Coord]struct{}{start: {}}
	x.OnEvent = func(e engine.Event) {
		visited[e.To] = struct{}{}
		slog.Debug("step", "tick", e.Tick, "event", e.Description())
	}

	eng := engine.NewEngine()
	eng.Interval = 0
	eng.MaxTicks = steps
	eng.CheckpointEvery = 0
	eng.OnTick = x.TickStep
	eng.Done = x.AllLooping
	reason := eng.Run(context.Background())

	marks := map[world.Coord]rune{}
	if showTrail {
		for c := range visited {
			marks[c] = '*'
		}
	}
	marks[start] = 'S'
	for c, r := range x.Marks() {
		marks[c] = r
	}
	fmt.Print(world.Render(f, marks))

	summary := world.TerrainCounts(f)
	v, _ := x.Scout(s.ID)
	fmt.Printf("\n%s: %s cells, %s water, tallest column %d\n",
		f, humanize.Comma(int64(summary.Cells)), humanize.Comma(int64(summary.Submerged)), summary.MaxBlocks)
	fmt.Printf("%s started at %s facing %s, stopped (%s) after %s steps at %s facing %s\n",
		v.Name, start, facing, reason, humanize.Comma(int64(v.Steps)), v.Position, v.Orientation)
	fmt.Printf("leaps %s, cells visited %d of %d dry (%.1f%%)\n",
		humanize.Comma(int64(v.Leaps)), v.CellsVisited, summary.Solid,
		100*float64(v.CellsVisited)/float64(max(summary.Solid, 1)))
	if v.Looping {
		fmt.Printf("walk settled into a %d-step cycle at tick %d\n", v.LoopLength, v.LoopAt)
	}
	return nil
}
