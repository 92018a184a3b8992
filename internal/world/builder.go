package world

import (
	"math"
	"strings"
)

// Sink receives placement instructions for the host world.
type Sink interface {
	Flood(c Coord)             // clear the cell and mark it liquid
	Stack(c Coord, blocks int) // stack solid blocks on the cell
}

// Column is the classification of one cell.
type Column struct {
	Coord     Coord   `json:"coord"`
	Height    float64 `json:"height"`
	Submerged bool    `json:"submerged"`
	Blocks    int     `json:"blocks"` // 0 when submerged
}

// Summary counts what Build emitted.
type Summary struct {
	Cells     int `json:"cells"`
	Submerged int `json:"submerged"`
	Solid     int `json:"solid"`
	MaxBlocks int `json:"max_blocks"`
}

// classify returns the column for c, which must be in bounds.
func classify(f *Field, c Coord) Column {
	h := f.at(c)
	sub, _ := f.IsSubmerged(c)
	col := Column{Coord: c, Height: h, Submerged: sub}
	if !sub {
		// A dry cell always gets at least one block, even a noise cell
		// sitting just above sea level.
		col.Blocks = int(math.Round(f.scale * (h - f.Reference())))
		if col.Blocks < 1 {
			col.Blocks = 1
		}
	}
	return col
}

// Build walks every cell in row-major order and emits it to sink.
func Build(f *Field, sink Sink) Summary {
	var s Summary
	for r := 0; r < f.rows; r++ {
		for c := 0; c < f.cols; c++ {
			col := classify(f, Coord{Row: r, Col: c})
			s.Cells++
			if col.Submerged {
				s.Submerged++
				sink.Flood(col.Coord)
				continue
			}
			s.Solid++
			if col.Blocks > s.MaxBlocks {
				s.MaxBlocks = col.Blocks
			}
			sink.Stack(col.Coord, col.Blocks)
		}
	}
	return s
}

// Plan is a Sink that records every instruction in order.
type Plan struct {
	Columns []Column
	field   *Field
}

// NewPlan returns a recording sink for f.
func NewPlan(f *Field) *Plan {
	return &Plan{field: f, Columns: make([]Column, 0, f.CellCount())}
}

func (p *Plan) Flood(c Coord) {
	h, _ := p.field.Height(c)
	p.Columns = append(p.Columns, Column{Coord: c, Height: h, Submerged: true})
}

func (p *Plan) Stack(c Coord, blocks int) {
	h, _ := p.field.Height(c)
	p.Columns = append(p.Columns, Column{Coord: c, Height: h, Blocks: blocks})
}

// Columns classifies every cell of f.
func Columns(f *Field) []Column {
	p := NewPlan(f)
	Build(f, p)
	return p.Columns
}

// Render draws f as text, highest row first: '~' for water, 0-9 for block
// height (capped at 9). Marked cells show their rune instead.
func Render(f *Field, marks map[Coord]rune) string {
	var b strings.Builder
	b.Grow((f.cols + 1) * f.rows)
	for r := f.rows - 1; r >= 0; r-- {
		for c := 0; c < f.cols; c++ {
			coord := Coord{Row: r, Col: c}
			if m, ok := marks[coord]; ok {
				b.WriteRune(m)
				continue
			}
			col := classify(f, coord)
			switch {
			case col.Submerged:
				b.WriteByte('~')
			case col.Blocks > 9:
				b.WriteByte('9')
			default:
				b.WriteByte(byte('0' + col.Blocks))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TerrainCounts summarizes f without emitting anything.
func TerrainCounts(f *Field) Summary {
	return Build(f, discard{})
}

type discard struct{}

func (discard) Flood(Coord)      {}
func (discard) Stack(Coord, int) {}
