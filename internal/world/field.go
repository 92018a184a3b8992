package world

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is matched by every OutOfBoundsError.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrInvalidShape reports empty, ragged, or non-positive grid dimensions.
	ErrInvalidShape = errors.New("invalid grid shape")
	// ErrNoReference is returned by Floor and Peak on a noise-backed field.
	ErrNoReference = errors.New("field has no table reference level")
)

// OutOfBoundsError carries the offending coordinate and the grid extent.
type OutOfBoundsError struct {
	Coord Coord
	Rows  int
	Cols  int
}

func (e *OutOfBoundsError) Error() string {
	if e.Rows == 0 && e.Cols == 0 {
		return fmt.Sprintf("coordinate %s out of bounds", e.Coord)
	}
	return fmt.Sprintf("coordinate %s outside %dx%d grid", e.Coord, e.Rows, e.Cols)
}

// Is lets errors.Is(err, ErrOutOfBounds) match.
func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// Backing identifies where a field's heights came from.
type Backing uint8

const (
	BackingTable Backing = iota // explicit integer heights
	BackingNoise                // continuous noise sampled at lattice points
)

func (b Backing) String() string {
	switch b {
	case BackingTable:
		return "table"
	case BackingNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// SeaPolicy decides which cells count as water.
type SeaPolicy uint8

const (
	SeaAtFloor   SeaPolicy = iota // the lowest level of the grid is water
	SeaBelowZero                  // any height below zero is water
)

func (p SeaPolicy) String() string {
	switch p {
	case SeaAtFloor:
		return "floor"
	case SeaBelowZero:
		return "below_zero"
	default:
		return "unknown"
	}
}

// Scale factors applied to height differences, so one "level" means the
// same thing on integer and continuous terrain.
const (
	TableScale = 1
	NoiseScale = 10
)

// Field is a rows×cols elevation grid. It is immutable once constructed
// and safe to share between any number of readers.
type Field struct {
	rows    int
	cols    int
	heights []float64 // row-major
	backing Backing
	sea     SeaPolicy
	scale   float64
	seed    int64

	floor float64
	peak  float64
}

// NewTableField builds a field from explicit integer heights, indexed
// heights[row][col]. The lowest level in the table is water.
func NewTableField(heights [][]int) (*Field, error) {
	return NewTableFieldWithPolicy(heights, SeaAtFloor)
}

// NewTableFieldWithPolicy is NewTableField with an explicit water rule.
func NewTableFieldWithPolicy(heights [][]int, sea SeaPolicy) (*Field, error) {
	rows := len(heights)
	if rows == 0 || len(heights[0]) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInvalidShape)
	}
	cols := len(heights[0])

	f := &Field{
		rows:    rows,
		cols:    cols,
		heights: make([]float64, rows*cols),
		backing: BackingTable,
		sea:     sea,
		scale:   TableScale,
		floor:   math.Inf(1),
		peak:    math.Inf(-1),
	}
	for r, line := range heights {
		if len(line) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidShape, r, len(line), cols)
		}
		for c, h := range line {
			v := float64(h)
			f.heights[r*cols+c] = v
			f.floor = math.Min(f.floor, v)
			f.peak = math.Max(f.peak, v)
		}
	}
	return f, nil
}

// NewSampledField evaluates sample once at every lattice point (x=row,
// y=col) and keeps the values, so heights stay stable even if the sampler
// is not.
func NewSampledField(rows, cols int, sample func(x, y float64) float64) (*Field, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, cols)
	}
	f := &Field{
		rows:    rows,
		cols:    cols,
		heights: make([]float64, rows*cols),
		backing: BackingNoise,
		sea:     SeaBelowZero,
		scale:   NoiseScale,
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			f.heights[r*cols+c] = sample(float64(r), float64(c))
		}
	}
	return f, nil
}

// Rows returns the number of rows.
func (f *Field) Rows() int { return f.rows }

// Columns returns the number of columns.
func (f *Field) Columns() int { return f.cols }

// Backing reports whether heights came from a table or from noise.
func (f *Field) Backing() Backing { return f.backing }

// Sea returns the field's water rule.
func (f *Field) Sea() SeaPolicy { return f.sea }

// Scale is the factor K applied by Ascent.
func (f *Field) Scale() float64 { return f.scale }

// Seed is the noise seed the field was generated from (0 for tables).
func (f *Field) Seed() int64 { return f.seed }

// InBounds reports whether c addresses a cell of this field.
func (f *Field) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < f.rows && c.Col >= 0 && c.Col < f.cols
}

func (f *Field) check(c Coord) error {
	if !f.InBounds(c) {
		return &OutOfBoundsError{Coord: c, Rows: f.rows, Cols: f.cols}
	}
	return nil
}

func (f *Field) at(c Coord) float64 {
	return f.heights[c.Row*f.cols+c.Col]
}

// Height returns the elevation at c.
func (f *Field) Height(c Coord) (float64, error) {
	if err := f.check(c); err != nil {
		return 0, err
	}
	return f.at(c), nil
}

// IsOnEdge reports whether one more step from c in direction d would leave
// the grid. It tests c itself, not the destination.
func (f *Field) IsOnEdge(d Direction, c Coord) (bool, error) {
	if err := f.check(c); err != nil {
		return false, err
	}
	switch d {
	case North:
		return c.Row == f.rows-1, nil
	case East:
		return c.Col == f.cols-1, nil
	case South:
		return c.Row == 0, nil
	case West:
		return c.Col == 0, nil
	}
	return false, fmt.Errorf("invalid direction %d", uint8(d))
}

// IsSubmerged reports whether c is under water according to the field's
// SeaPolicy.
func (f *Field) IsSubmerged(c Coord) (bool, error) {
	if err := f.check(c); err != nil {
		return false, err
	}
	h := f.at(c)
	if f.sea == SeaAtFloor {
		return h == f.floor, nil
	}
	return h < 0, nil
}

// Ascent returns round(K × (height(to) − height(from))). Positive means to
// is higher.
func (f *Field) Ascent(from, to Coord) (int, error) {
	if err := f.check(from); err != nil {
		return 0, err
	}
	if err := f.check(to); err != nil {
		return 0, err
	}
	return int(math.Round(f.scale * (f.at(to) - f.at(from)))), nil
}

// Floor returns the lowest table height.
func (f *Field) Floor() (float64, error) {
	if f.backing != BackingTable {
		return 0, ErrNoReference
	}
	return f.floor, nil
}

// Peak returns the highest table height.
func (f *Field) Peak() (float64, error) {
	if f.backing != BackingTable {
		return 0, ErrNoReference
	}
	return f.peak, nil
}

// Reference is the level block stacks are measured from: the table floor,
// or zero (sea level) for noise.
func (f *Field) Reference() float64 {
	if f.backing == BackingTable {
		return f.floor
	}
	return 0
}

// CellCount returns rows × cols.
func (f *Field) CellCount() int {
	return f.rows * f.cols
}

// String returns a summary of the field.
func (f *Field) String() string {
	return fmt.Sprintf("Field(%s, %dx%d)", f.backing, f.rows, f.cols)
}
