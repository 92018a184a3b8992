package world

import "fmt"

// Coord addresses one grid cell. Whether it is valid depends on the field
// it is used against.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Translate returns the coordinate steps cells away in direction d.
func (c Coord) Translate(d Direction, steps int) Coord {
	dr, dc := d.Delta()
	return Coord{Row: c.Row + dr*steps, Col: c.Col + dc*steps}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}
