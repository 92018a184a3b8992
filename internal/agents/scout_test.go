package agents

import (
	"errors"
	"testing"

	"github.com/talgya/ridgewalk/internal/world"
)

// spyTerrain counts the queries that need a valid destination cell.
type spyTerrain struct {
	*world.Field
	submergedCalls int
	ascentCalls    int
}

func (s *spyTerrain) IsSubmerged(c world.Coord) (bool, error) {
	s.submergedCalls++
	return s.Field.IsSubmerged(c)
}

func (s *spyTerrain) Ascent(from, to world.Coord) (int, error) {
	s.ascentCalls++
	return s.Field.Ascent(from, to)
}

func table(t *testing.T, sea world.SeaPolicy, rows ...[]int) *world.Field {
	t.Helper()
	f, err := world.NewTableFieldWithPolicy(rows, sea)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func sampled(t *testing.T, rows, cols int, heights map[world.Coord]float64) *world.Field {
	t.Helper()
	f, err := world.NewSampledField(rows, cols, func(x, y float64) float64 {
		return heights[world.Coord{Row: int(x), Col: int(y)}]
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func mustScout(t *testing.T, at world.Coord, facing world.Direction, terrain Terrain) *Scout {
	t.Helper()
	s, err := NewScout(1, "Test", at, facing, terrain)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewScoutRejectsOffGrid(t *testing.T) {
	f := world.Valley()
	_, err := NewScout(1, "Lost", world.Coord{Row: 12, Col: 0}, world.North, f)
	if !errors.Is(err, world.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	var oob *world.OutOfBoundsError
	if !errors.As(err, &oob) || oob.Rows != 12 || oob.Cols != 12 {
		t.Fatalf("error lacks the grid extent: %v", err)
	}
	if want := "place scout 1: coordinate (12,0) outside 12x12 grid"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err, want)
	}
}

func TestTurnsAreCyclic(t *testing.T) {
	s := mustScout(t, world.Coord{}, world.East, world.Valley())
	for i := 0; i < 4; i++ {
		s.TurnRight()
	}
	if s.Orientation() != world.East {
		t.Fatalf("four right turns ended facing %s", s.Orientation())
	}
	for i := 0; i < 4; i++ {
		s.TurnLeft()
	}
	if s.Orientation() != world.East {
		t.Fatalf("four left turns ended facing %s", s.Orientation())
	}
	s.TurnRight()
	if s.Orientation() != world.South || s.Position() != (world.Coord{}) {
		t.Fatalf("turning moved the scout or went the wrong way: %+v", s.State())
	}
}

func TestGazeAndAim(t *testing.T) {
	s := mustScout(t, world.Coord{Row: 5, Col: 5}, world.South, world.Valley())
	if s.Gaze(world.Left) != world.East || s.Gaze(world.Right) != world.West {
		t.Fatalf("south-facing gaze wrong: left=%s right=%s", s.Gaze(world.Left), s.Gaze(world.Right))
	}
	if got := s.Aim(world.Forward); got != (world.Coord{Row: 4, Col: 5}) {
		t.Fatalf("aim forward = %s", got)
	}
}

func TestLeapOffGridPanics(t *testing.T) {
	s := mustScout(t, world.Coord{Row: 0, Col: 0}, world.South, world.Valley())
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, world.ErrOutOfBounds) {
			t.Fatalf("expected out-of-bounds panic, got %v", r)
		}
		var oob *world.OutOfBoundsError
		if !errors.As(err, &oob) || oob.Coord != (world.Coord{Row: -1, Col: 0}) || oob.Rows != 12 || oob.Cols != 12 {
			t.Fatalf("panic lacks the grid extent: %v", err)
		}
		if s.Position() != (world.Coord{}) {
			t.Fatalf("position changed to %s", s.Position())
		}
	}()
	s.Leap()
}

func TestEdgeShortCircuits(t *testing.T) {
	spy := &spyTerrain{Field: table(t, world.SeaBelowZero,
		[]int{0, 0, 0},
		[]int{0, 0, 0},
	)}
	s := mustScout(t, world.Coord{Row: 1, Col: 0}, world.West, spy)
	if !s.IsBlocked(world.Forward) {
		t.Fatal("west edge facing west must be blocked")
	}
	if !s.IsBlocked(world.Right) {
		t.Fatal("north edge on the right must be blocked")
	}
	if spy.submergedCalls != 0 || spy.ascentCalls != 0 {
		t.Fatalf("edge check queried elevation: submerged=%d ascent=%d", spy.submergedCalls, spy.ascentCalls)
	}
	if s.IsBlocked(world.Left) {
		t.Fatal("south of (1,0) is flat dry land")
	}
}

func TestSubmergedBlocksRegardlessOfSlope(t *testing.T) {
	a := world.Coord{Row: 0, Col: 0}
	b := world.Coord{Row: 0, Col: 1}
	spy := &spyTerrain{Field: sampled(t, 1, 2, map[world.Coord]float64{a: 1.2, b: -0.1})}
	if sub, _ := spy.Field.IsSubmerged(b); !sub {
		t.Fatal("B should be submerged")
	}
	s := mustScout(t, a, world.East, spy)
	if !s.IsBlocked(world.Forward) {
		t.Fatal("water ahead must block")
	}
	if spy.ascentCalls != 0 {
		t.Fatal("submersion alone should decide")
	}

	// Water is blocking even when the slope would be walkable.
	shallow := sampled(t, 1, 2, map[world.Coord]float64{a: 0.02, b: -0.01})
	s = mustScout(t, a, world.East, shallow)
	if !s.IsBlocked(world.Forward) {
		t.Fatal("shallow water ahead must block")
	}
}

func TestSlopeLimit(t *testing.T) {
	f := table(t, world.SeaBelowZero, []int{1, 2, 4, 3})
	cases := []struct {
		at      int
		facing  world.Direction
		blocked bool
	}{
		{0, world.East, false}, // +1
		{1, world.East, true},  // +2
		{2, world.West, true},  // -2
		{2, world.East, false}, // -1
		{1, world.West, false}, // -1
	}
	for _, tc := range cases {
		s := mustScout(t, world.Coord{Col: tc.at}, tc.facing, f)
		if got := s.IsBlocked(world.Forward); got != tc.blocked {
			t.Fatalf("at col %d facing %s: blocked=%v, want %v", tc.at, tc.facing, got, tc.blocked)
		}
	}

	a, b, c := world.Coord{Col: 0}, world.Coord{Col: 1}, world.Coord{Col: 2}
	nf := sampled(t, 1, 3, map[world.Coord]float64{a: 0.5, b: 0.64, c: 0.8})
	if s := mustScout(t, a, world.East, nf); s.IsBlocked(world.Forward) {
		t.Fatal("0.14 rise rounds to one level and should be walkable")
	}
	if s := mustScout(t, b, world.East, nf); !s.IsBlocked(world.Forward) {
		t.Fatal("0.16 rise rounds to two levels and should block")
	}
}

func TestStepOpenRightTurnsAndLeaps(t *testing.T) {
	bump := table(t, world.SeaBelowZero,
		[]int{0, 0, 0},
		[]int{0, 5, 0},
		[]int{0, 0, 0},
	)
	s := mustScout(t, world.Coord{Row: 0, Col: 0}, world.North, bump)
	if s.IsBlocked(world.Right) {
		t.Fatal("east neighbour is level dry ground")
	}
	a := s.Step()
	if a.Kind != ActionTurnRightLeap || a.To != (world.Coord{Row: 0, Col: 1}) || a.Facing != world.East {
		t.Fatalf("unexpected first action %+v", a)
	}
	if !a.Moved() || a.From != (world.Coord{}) {
		t.Fatalf("action should record the move from the origin: %+v", a)
	}
}

func TestStepNeverClimbsTheBump(t *testing.T) {
	bump := table(t, world.SeaBelowZero,
		[]int{0, 0, 0},
		[]int{0, 5, 0},
		[]int{0, 0, 0},
	)
	center := world.Coord{Row: 1, Col: 1}
	s := mustScout(t, world.Coord{Row: 0, Col: 0}, world.North, bump)

	visited := map[world.Coord]bool{}
	for i := 0; i < 40; i++ {
		s.Step()
		if s.Position() == center {
			t.Fatalf("step %d climbed onto the bump", i)
		}
		if !bump.InBounds(s.Position()) {
			t.Fatalf("step %d left the grid at %s", i, s.Position())
		}
		visited[s.Position()] = true
	}
	if len(visited) != 8 {
		t.Fatalf("expected to circle all 8 perimeter cells, visited %d", len(visited))
	}
	if s.Steps() != 40 {
		t.Fatalf("steps = %d", s.Steps())
	}
}

func TestStepBlockedRightLeapsForward(t *testing.T) {
	corridor := table(t, world.SeaBelowZero, []int{0, 0, 0})
	s := mustScout(t, world.Coord{Col: 0}, world.East, corridor)
	a := s.Step()
	if a.Kind != ActionLeap || s.Position() != (world.Coord{Col: 1}) || s.Orientation() != world.East {
		t.Fatalf("expected a straight leap, got %+v", a)
	}
}

func TestStepDeadEndTurnsLeftInPlace(t *testing.T) {
	single := table(t, world.SeaBelowZero, []int{3})
	s := mustScout(t, world.Coord{}, world.North, single)
	want := []world.Direction{world.West, world.South, world.East, world.North}
	for i, d := range want {
		a := s.Step()
		if a.Kind != ActionTurnLeft || a.Moved() || s.Orientation() != d {
			t.Fatalf("step %d: %+v, facing %s want %s", i, a, s.Orientation(), d)
		}
	}
	if s.Leaps() != 0 {
		t.Fatalf("leaps = %d", s.Leaps())
	}
}

func TestStepStaysOnValley(t *testing.T) {
	f := world.Valley()
	s := mustScout(t, world.Coord{Row: 0, Col: 0}, world.North, f)
	for i := 0; i < 500; i++ {
		s.Step()
		if sub, _ := f.IsSubmerged(s.Position()); sub {
			t.Fatalf("step %d walked into the river at %s", i, s.Position())
		}
	}
}

type placements struct {
	ids    []ScoutID
	at     []world.Coord
	facing []world.Direction
}

func (p *placements) Place(id ScoutID, name string, at world.Coord, facing world.Direction) {
	p.ids = append(p.ids, id)
	p.at = append(p.at, at)
	p.facing = append(p.facing, facing)
}

func TestMaterialize(t *testing.T) {
	s := mustScout(t, world.Coord{Row: 2, Col: 3}, world.West, world.Valley())
	p := &placements{}
	s.Materialize(p)
	if len(p.ids) != 1 || p.ids[0] != 1 || p.at[0] != (world.Coord{Row: 2, Col: 3}) || p.facing[0] != world.West {
		t.Fatalf("unexpected placement %+v", p)
	}
}

func TestActionKindText(t *testing.T) {
	for _, k := range []ActionKind{ActionTurnLeft, ActionLeap, ActionTurnRightLeap} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back ActionKind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Fatalf("%s round-tripped to %s (%v)", k, back, err)
		}
	}
	var k ActionKind
	if err := k.UnmarshalText([]byte("hover")); err == nil {
		t.Fatal("unknown kind accepted")
	}
}
