// Expedition ties the shared terrain to its scouts and records what they do.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ridgewalk/internal/agents"
	"github.com/talgya/ridgewalk/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is one scout step.
type Event struct {
	Tick    uint64            `json:"tick"`
	ScoutID agents.ScoutID    `json:"scout_id"`
	Kind    agents.ActionKind `json:"kind"`
	From    world.Coord       `json:"from"`
	To      world.Coord       `json:"to"`
	Facing  world.Direction   `json:"facing"`
}

// Description renders the event for logs.
func (e Event) Description() string {
	return fmt.Sprintf("scout %d %s %s→%s facing %s", e.ScoutID, e.Kind, e.From, e.To, e.Facing)
}

// trail is per-scout bookkeeping the scout itself does not keep.
type trail struct {
	seen       map[agents.State]uint64 // state → step count when first held
	visited    map[world.Coord]struct{}
	looping    bool
	loopAt     uint64 // tick the repeat was detected
	loopLength uint64 // steps in the detected cycle
}

func newTrail(s *agents.Scout) *trail {
	return &trail{
		seen:    map[agents.State]uint64{s.State(): s.Steps()},
		visited: map[world.Coord]struct{}{s.Position(): {}},
	}
}

// Expedition holds the terrain and every scout walking it. It is safe for
// concurrent readers while one goroutine calls TickStep.
type Expedition struct {
	mu sync.RWMutex

	Field  *world.Field
	scouts []*agents.Scout
	index  map[agents.ScoutID]*agents.Scout
	trails map[agents.ScoutID]*trail

	visited  map[world.Coord]struct{}
	dryCells int

	events   []Event // recent, bounded
	pending  []Event // not yet persisted
	lastTick uint64

	// StepLooping keeps stepping scouts that are known to be cycling.
	StepLooping bool
	// KeepPending queues every step for DrainPending. Leave it off when
	// nothing drains the queue.
	KeepPending bool
	// OnEvent, if set, is called for every step outside the lock.
	OnEvent func(Event)
}

// NewExpedition creates an expedition over f with the given scouts.
func NewExpedition(f *world.Field, scouts []*agents.Scout) *Expedition {
	x := &Expedition{
		Field:   f,
		scouts:  scouts,
		index:   make(map[agents.ScoutID]*agents.Scout, len(scouts)),
		trails:  make(map[agents.ScoutID]*trail, len(scouts)),
		visited: make(map[world.Coord]struct{}),
	}
	x.dryCells = world.TerrainCounts(f).Solid
	for _, s := range scouts {
		x.index[s.ID] = s
		x.trails[s.ID] = newTrail(s)
		x.visited[s.Position()] = struct{}{}
	}
	return x
}

// SetLastTick records the tick the expedition resumed from.
func (x *Expedition) SetLastTick(tick uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.lastTick = tick
}

// CurrentTick returns the most recently processed tick number.
func (x *Expedition) CurrentTick() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.lastTick
}

// TickStep advances every active scout by one wall-following step.
func (x *Expedition) TickStep(tick uint64) {
	x.mu.Lock()
	x.lastTick = tick
	var emitted []Event
	for _, s := range x.scouts {
		tr := x.trails[s.ID]
		if tr.looping && !x.StepLooping {
			continue
		}

		a := s.Step()
		e := Event{Tick: tick, ScoutID: s.ID, Kind: a.Kind, From: a.From, To: a.To, Facing: a.Facing}
		emitted = append(emitted, e)

		tr.visited[a.To] = struct{}{}
		x.visited[a.To] = struct{}{}

		st := s.State()
		if first, ok := tr.seen[st]; ok {
			if !tr.looping {
				tr.looping = true
				tr.loopAt = tick
				tr.loopLength = s.Steps() - first
				slog.Info("scout is looping",
					"scout", s.ID,
					"name", s.Name,
					"tick", tick,
					"cycle_steps", tr.loopLength,
					"cells_visited", len(tr.visited),
				)
			}
		} else {
			tr.seen[st] = s.Steps()
		}
	}
	x.events = append(x.events, emitted...)
	if len(x.events) > maxEvents {
		x.events = x.events[len(x.events)-maxEvents:]
	}
	if x.KeepPending {
		x.pending = append(x.pending, emitted...)
	}
	x.mu.Unlock()

	if x.OnEvent != nil {
		for _, e := range emitted {
			x.OnEvent(e)
		}
	}
}

// AllLooping reports whether every scout has entered a cycle. It is the
// natural stop condition, since a memoryless scout never leaves one.
func (x *Expedition) AllLooping() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, tr := range x.trails {
		if !tr.looping {
			return false
		}
	}
	return true
}

// ScoutView is a read-only copy of one scout's state.
type ScoutView struct {
	ID           agents.ScoutID  `json:"id"`
	Name         string          `json:"name"`
	Position     world.Coord     `json:"position"`
	Orientation  world.Direction `json:"orientation"`
	Steps        uint64          `json:"steps"`
	Leaps        uint64          `json:"leaps"`
	Looping      bool            `json:"looping"`
	LoopAt       uint64          `json:"loop_at,omitempty"`
	LoopLength   uint64          `json:"loop_length,omitempty"`
	CellsVisited int             `json:"cells_visited"`
}

func (x *Expedition) view(s *agents.Scout) ScoutView {
	tr := x.trails[s.ID]
	return ScoutView{
		ID:           s.ID,
		Name:         s.Name,
		Position:     s.Position(),
		Orientation:  s.Orientation(),
		Steps:        s.Steps(),
		Leaps:        s.Leaps(),
		Looping:      tr.looping,
		LoopAt:       tr.loopAt,
		LoopLength:   tr.loopLength,
		CellsVisited: len(tr.visited),
	}
}

// Scouts returns a snapshot of every scout in ID order of creation.
func (x *Expedition) Scouts() []ScoutView {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]ScoutView, 0, len(x.scouts))
	for _, s := range x.scouts {
		out = append(out, x.view(s))
	}
	return out
}

// Scout returns one scout's snapshot.
func (x *Expedition) Scout(id agents.ScoutID) (ScoutView, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.index[id]
	if !ok {
		return ScoutView{}, false
	}
	return x.view(s), true
}

// Materialize places every scout marker on p.
func (x *Expedition) Materialize(p agents.Placer) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, s := range x.scouts {
		s.Materialize(p)
	}
}

type glyphMarks map[world.Coord]rune

func (m glyphMarks) Place(_ agents.ScoutID, _ string, at world.Coord, facing world.Direction) {
	m[at] = facing.Glyph()
}

// Marks returns a heading arrow at every scout position, for world.Render.
func (x *Expedition) Marks() map[world.Coord]rune {
	m := glyphMarks{}
	x.Materialize(m)
	return m
}

// Events returns up to limit of the most recent events, oldest first.
func (x *Expedition) Events(limit int) []Event {
	x.mu.RLock()
	defer x.mu.RUnlock()
	start := 0
	if limit > 0 && len(x.events) > limit {
		start = len(x.events) - limit
	}
	return append([]Event(nil), x.events[start:]...)
}

// DrainPending returns and clears events not yet handed to storage.
func (x *Expedition) DrainPending() []Event {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := x.pending
	x.pending = nil
	return out
}

// Requeue puts events taken by DrainPending back at the front of the
// queue, ahead of anything recorded since.
func (x *Expedition) Requeue(events []Event) {
	if len(events) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending = append(append(make([]Event, 0, len(events)+len(x.pending)), events...), x.pending...)
}

// Stats summarizes exploration progress.
type Stats struct {
	Tick         uint64  `json:"tick"`
	Scouts       int     `json:"scouts"`
	Looping      int     `json:"looping"`
	CellsVisited int     `json:"cells_visited"`
	DryCells     int     `json:"dry_cells"`
	Coverage     float64 `json:"coverage"` // visited / dry cells
}

// Stats returns current aggregate statistics.
func (x *Expedition) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	st := Stats{
		Tick:         x.lastTick,
		Scouts:       len(x.scouts),
		CellsVisited: len(x.visited),
		DryCells:     x.dryCells,
	}
	for _, tr := range x.trails {
		if tr.looping {
			st.Looping++
		}
	}
	if x.dryCells > 0 {
		st.Coverage = float64(st.CellsVisited) / float64(x.dryCells)
	}
	return st
}

// Checkpoint logs a progress report.
func (x *Expedition) Checkpoint(tick uint64) {
	st := x.Stats()
	slog.Info("expedition report",
		"tick", humanize.Comma(int64(tick)),
		"scouts", st.Scouts,
		"looping", st.Looping,
		"cells_visited", humanize.Comma(int64(st.CellsVisited)),
		"coverage", fmt.Sprintf("%.1f%%", st.Coverage*100),
	)
}
