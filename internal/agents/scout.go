package agents

import (
	"fmt"

	"github.com/talgya/ridgewalk/internal/world"
)

// Scout walks a terrain keeping an obstacle on its right-hand side. Its
// position is always a valid cell of its terrain. A scout is not safe for
// concurrent use; the terrain may be shared.
type Scout struct {
	ID   ScoutID
	Name string

	position    world.Coord
	orientation world.Direction
	terrain     Terrain
	steps       uint64
	leaps       uint64
}

// NewScout places a scout at a cell of terrain, facing the given heading.
func NewScout(id ScoutID, name string, at world.Coord, facing world.Direction, terrain Terrain) (*Scout, error) {
	if !terrain.InBounds(at) {
		return nil, fmt.Errorf("place scout %d: %w", id, outOfBounds(terrain, at))
	}
	if facing > world.West {
		return nil, fmt.Errorf("place scout %d: invalid heading %d", id, uint8(facing))
	}
	return &Scout{
		ID:          id,
		Name:        name,
		position:    at,
		orientation: facing,
		terrain:     terrain,
	}, nil
}

// Position returns the current cell.
func (s *Scout) Position() world.Coord { return s.position }

// Orientation returns the current heading.
func (s *Scout) Orientation() world.Direction { return s.orientation }

// State returns (position, orientation).
func (s *Scout) State() State {
	return State{Position: s.position, Orientation: s.orientation}
}

// Steps returns how many times Step has been called.
func (s *Scout) Steps() uint64 { return s.steps }

// Leaps returns how many cells the scout has moved.
func (s *Scout) Leaps() uint64 { return s.leaps }

// Restore sets counters when resuming a saved scout.
func (s *Scout) Restore(steps, leaps uint64) {
	s.steps = steps
	s.leaps = leaps
}

// TurnRight rotates a quarter turn clockwise in place.
func (s *Scout) TurnRight() {
	s.orientation = world.RotateRight(s.orientation)
}

// TurnLeft rotates a quarter turn counter-clockwise in place.
func (s *Scout) TurnLeft() {
	s.orientation = world.RotateLeft(s.orientation)
}

// Gaze resolves a relative view to an absolute direction.
func (s *Scout) Gaze(view world.Horizon) world.Direction {
	return world.Resolve(s.orientation, view)
}

// Aim returns the cell one step away in the given view. It may be off-grid.
func (s *Scout) Aim(view world.Horizon) world.Coord {
	return s.position.Translate(s.Gaze(view), 1)
}

// Leap moves one cell forward. Leaping off the grid is a caller bug and
// panics with a *world.OutOfBoundsError; check IsBlocked(world.Forward)
// first.
func (s *Scout) Leap() {
	dest := s.Aim(world.Forward)
	if !s.terrain.InBounds(dest) {
		panic(outOfBounds(s.terrain, dest))
	}
	s.position = dest
	s.leaps++
}

// IsBlocked reports whether the cell in the given view cannot be entered:
// it is off the grid, under water, or more than MaxClimb levels above or
// below the current cell. The edge test runs first so the destination is
// only queried once it is known to exist.
func (s *Scout) IsBlocked(view world.Horizon) bool {
	d := s.Gaze(view)
	edge, err := s.terrain.IsOnEdge(d, s.position)
	if err != nil {
		panic(err) // position is kept valid
	}
	if edge {
		return true
	}

	dest := s.position.Translate(d, 1)
	sub, err := s.terrain.IsSubmerged(dest)
	if err != nil {
		panic(err)
	}
	if sub {
		return true
	}

	climb, err := s.terrain.Ascent(s.position, dest)
	if err != nil {
		panic(err)
	}
	return climb > MaxClimb || climb < -MaxClimb
}

func outOfBounds(t Terrain, c world.Coord) *world.OutOfBoundsError {
	return &world.OutOfBoundsError{Coord: c, Rows: t.Rows(), Cols: t.Columns()}
}

// Step applies one round of the right-hand wall-following rule:
//
//	blocked ahead and right: turn left in place
//	blocked right only:      leap forward
//	open right:              turn right, then leap
//
// The rule is memoryless; repeated calls may cycle forever.
func (s *Scout) Step() Action {
	s.steps++
	from := s.position
	var kind ActionKind

	blockedRight := s.IsBlocked(world.Right)
	switch {
	case blockedRight && s.IsBlocked(world.Forward):
		s.TurnLeft()
		kind = ActionTurnLeft
	case blockedRight:
		s.Leap()
		kind = ActionLeap
	default:
		// The new forward is the old right, which was just found open.
		s.TurnRight()
		s.Leap()
		kind = ActionTurnRightLeap
	}

	return Action{
		ScoutID: s.ID,
		Kind:    kind,
		From:    from,
		To:      s.position,
		Facing:  s.orientation,
	}
}

// Materialize shows the scout in the host world.
func (s *Scout) Materialize(p Placer) {
	p.Place(s.ID, s.Name, s.position, s.orientation)
}
