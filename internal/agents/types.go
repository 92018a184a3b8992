// Package agents provides scouts: terrain-walking agents that follow the
// right-hand wall under a slope limit.
package agents

import (
	"fmt"

	"github.com/talgya/ridgewalk/internal/world"
)

// ScoutID is a unique identifier for a scout.
type ScoutID uint64

// MaxClimb is the largest absolute ascent, in scaled levels, a scout can
// take in one step.
const MaxClimb = 1

// Terrain is the part of the elevation field a scout needs. *world.Field
// satisfies it.
type Terrain interface {
	Rows() int
	Columns() int
	InBounds(c world.Coord) bool
	IsOnEdge(d world.Direction, c world.Coord) (bool, error)
	IsSubmerged(c world.Coord) (bool, error)
	Ascent(from, to world.Coord) (int, error)
}

// State is the complete observable state of a scout. The step policy is a
// pure function of it.
type State struct {
	Position    world.Coord     `json:"position"`
	Orientation world.Direction `json:"orientation"`
}

// ActionKind enumerates the outcomes of one wall-following step.
type ActionKind uint8

const (
	ActionTurnLeft      ActionKind = iota // dead end: pivot left in place
	ActionLeap                            // wall on the right: go straight
	ActionTurnRightLeap                   // wall fell away: turn into it and advance
)

func (k ActionKind) String() string {
	switch k {
	case ActionTurnLeft:
		return "turn_left"
	case ActionLeap:
		return "leap"
	case ActionTurnRightLeap:
		return "turn_right_leap"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (k *ActionKind) UnmarshalText(text []byte) error {
	for _, c := range []ActionKind{ActionTurnLeft, ActionLeap, ActionTurnRightLeap} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", text)
}

// Action records what one Step did.
type Action struct {
	ScoutID ScoutID         `json:"scout_id"`
	Kind    ActionKind      `json:"kind"`
	From    world.Coord     `json:"from"`
	To      world.Coord     `json:"to"`
	Facing  world.Direction `json:"facing"` // orientation after the step
}

// Moved reports whether the action changed position.
func (a Action) Moved() bool {
	return a.From != a.To
}

// Placer is the host world's marker sink: it shows a scout at a cell.
type Placer interface {
	Place(id ScoutID, name string, at world.Coord, facing world.Direction)
}
