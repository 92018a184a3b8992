package engine

import (
	"context"
	"testing"
	"time"
)

func TestRunStopsAtBudget(t *testing.T) {
	e := NewEngine()
	e.Interval = 0
	e.MaxTicks = 10
	e.CheckpointEvery = 5

	ticks, checkpoints := 0, 0
	e.OnTick = func(uint64) { ticks++ }
	e.OnCheckpoint = func(uint64) { checkpoints++ }

	if reason := e.Run(context.Background()); reason != StopBudget {
		t.Fatalf("reason = %s, want budget", reason)
	}
	if ticks != 10 || checkpoints != 2 || e.Tick() != 10 {
		t.Fatalf("ticks=%d checkpoints=%d tick=%d", ticks, checkpoints, e.Tick())
	}
	if e.Running() {
		t.Fatal("engine still marked running")
	}
}

func TestRunBudgetCountsFromResumeTick(t *testing.T) {
	e := NewEngine()
	e.Interval = 0
	e.MaxTicks = 3
	e.SetTick(100)
	var last uint64
	e.OnTick = func(tick uint64) { last = tick }
	e.Run(context.Background())
	if last != 103 {
		t.Fatalf("last tick = %d, want 103", last)
	}
}

func TestRunStopsWhenDone(t *testing.T) {
	e := NewEngine()
	e.Interval = 0
	n := 0
	e.OnTick = func(uint64) { n++ }
	e.Done = func() bool { return n >= 4 }
	if reason := e.Run(context.Background()); reason != StopDone {
		t.Fatalf("reason = %s, want done", reason)
	}
	if n != 4 {
		t.Fatalf("ran %d ticks", n)
	}
}

func TestRunCancelled(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64) {
		if tick == 3 {
			cancel()
		}
	}
	if reason := e.Run(ctx); reason != StopCancelled {
		t.Fatalf("reason = %s, want cancelled", reason)
	}
}

func TestStopWhilePaused(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(0)
	done := make(chan StopReason)
	go func() { done <- e.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	e.Stop()
	e.Stop() // second call is harmless

	select {
	case reason := <-done:
		if reason != StopRequested {
			t.Fatalf("reason = %s", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	if e.Tick() != 0 {
		t.Fatalf("paused engine ticked %d times", e.Tick())
	}
}

func TestSetSpeedClampsNegative(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(-2)
	if e.Speed() != 0 {
		t.Fatalf("speed = %v", e.Speed())
	}
}
