// Package world provides the terrain grid, elevation queries, and the
// compass/heading model scouts navigate with.
package world

import (
	"fmt"
	"strings"
)

// Direction is an absolute compass heading on the grid.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// AllDirections returns the four headings in rotation order.
func AllDirections() [4]Direction {
	return [4]Direction{North, East, South, West}
}

// String returns the heading name.
func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return "Unknown"
	}
}

// Glyph returns an arrow for renders drawn with the highest row on top.
func (d Direction) Glyph() rune {
	switch d {
	case North:
		return '^'
	case East:
		return '>'
	case South:
		return 'v'
	case West:
		return '<'
	default:
		return '?'
	}
}

// MarshalText encodes the heading by name so JSON payloads stay readable.
func (d Direction) MarshalText() ([]byte, error) {
	if d > West {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts any name understood by ParseDirection.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts a heading name or its first letter, case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n":
		return North, nil
	case "east", "e":
		return East, nil
	case "south", "s":
		return South, nil
	case "west", "w":
		return West, nil
	}
	return North, fmt.Errorf("unknown direction %q", s)
}

// Delta returns the row and column offsets of one step in this direction.
// North increases the row; the table is authoritative, not compass geometry.
func (d Direction) Delta() (dRow, dCol int) {
	switch d {
	case North:
		return 1, 0
	case East:
		return 0, 1
	case South:
		return -1, 0
	case West:
		return 0, -1
	default:
		return 0, 0
	}
}

// Horizon is a view relative to a heading: straight ahead, or a quarter
// turn to either side.
type Horizon uint8

const (
	Forward Horizon = iota
	Left
	Right
)

func (h Horizon) String() string {
	switch h {
	case Forward:
		return "Forward"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

var rightOf = [4]Direction{
	North: East,
	East:  South,
	South: West,
	West:  North,
}

var leftOf = [4]Direction{
	North: West,
	East:  North,
	South: East,
	West:  South,
}

// RotateRight returns the heading a quarter turn clockwise.
func RotateRight(d Direction) Direction {
	return rightOf[d]
}

// RotateLeft returns the heading a quarter turn counter-clockwise.
func RotateLeft(d Direction) Direction {
	return leftOf[d]
}

// resolveTable maps (heading, view) to the absolute direction being looked at.
var resolveTable = [4][3]Direction{
	//          Forward Left   Right
	North: {North, West, East},
	East:  {East, North, South},
	South: {South, East, West},
	West:  {West, South, North},
}

// Resolve turns a relative view into an absolute direction for the given
// heading.
func Resolve(orientation Direction, view Horizon) Direction {
	return resolveTable[orientation][view]
}
