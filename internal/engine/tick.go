// Package engine provides the tick-based stepping loop that drives scouts.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCheckpointEvery is how many ticks pass between checkpoint callbacks.
const DefaultCheckpointEvery = 500

// Engine drives an expedition forward one tick at a time.
type Engine struct {
	Interval        time.Duration // Base tick interval; 0 runs as fast as possible
	MaxTicks        uint64        // Stop after this many ticks (0 = unbounded)
	CheckpointEvery uint64        // Ticks between OnCheckpoint calls (0 = never)

	// Callbacks populated during setup.
	OnTick       func(tick uint64) // Every tick
	OnCheckpoint func(tick uint64) // Every CheckpointEvery ticks
	Done         func() bool       // Optional external stop condition

	mu      sync.Mutex
	tick    uint64
	speed   float64
	running bool
	stop    chan struct{}
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		speed:           1.0,
		Interval:        100 * time.Millisecond,
		CheckpointEvery: DefaultCheckpointEvery,
		stop:            make(chan struct{}),
	}
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick sets the starting tick when resuming.
func (e *Engine) SetTick(t uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick = t
}

// Speed returns the speed multiplier: 1.0 = one tick per Interval, 0 = paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Negative values pause.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = s
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run steps until ctx is cancelled, Stop is called, MaxTicks is reached,
// or Done reports true. It returns the reason it stopped.
func (e *Engine) Run(ctx context.Context) StopReason {
	e.mu.Lock()
	e.running = true
	start := e.tick
	e.mu.Unlock()

	slog.Info("engine started", "tick", start, "max_ticks", e.MaxTicks, "interval", e.Interval)
	reason := e.loop(ctx, start)

	e.mu.Lock()
	e.running = false
	end := e.tick
	e.mu.Unlock()
	slog.Info("engine stopped", "tick", end, "reason", reason)
	return reason
}

func (e *Engine) loop(ctx context.Context, start uint64) StopReason {
	for {
		select {
		case <-ctx.Done():
			return StopCancelled
		case <-e.stop:
			return StopRequested
		default:
		}

		if e.MaxTicks > 0 && e.Tick()-start >= e.MaxTicks {
			return StopBudget
		}
		if e.Done != nil && e.Done() {
			return StopDone
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			e.sleep(ctx, 100*time.Millisecond)
			continue
		}

		began := time.Now()
		e.step()

		if e.Interval > 0 {
			target := time.Duration(float64(e.Interval) / speed)
			if elapsed := time.Since(began); elapsed < target {
				e.sleep(ctx, target-elapsed)
			}
		}
	}
}

// sleep waits for d or until the engine is stopped. It reports whether the
// full duration elapsed.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-e.stop:
		return false
	}
}

// Stop halts the loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// step advances the engine by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.CheckpointEvery > 0 && tick%e.CheckpointEvery == 0 && e.OnCheckpoint != nil {
		e.OnCheckpoint(tick)
	}
}

// StopReason says why Run returned.
type StopReason uint8

const (
	StopCancelled StopReason = iota // context cancelled
	StopRequested                   // Stop called
	StopBudget                      // MaxTicks reached
	StopDone                        // Done predicate satisfied
)

func (r StopReason) String() string {
	switch r {
	case StopCancelled:
		return "cancelled"
	case StopRequested:
		return "stopped"
	case StopBudget:
		return "budget"
	case StopDone:
		return "done"
	default:
		return "unknown"
	}
}
