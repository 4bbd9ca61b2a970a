package seating

import (
	"fmt"
	"strings"
)

// Seat-count ceiling per axis. This is a UI policy, not an algorithmic limit.
const (
	MinDimension = 1
	MaxDimension = 15
)

// Orientation says which physical edge of the room is the front. The string
// values are the ones written by exported snapshot files.
type Orientation string

const (
	// Near puts the blackboard below the grid: the leftmost display column is
	// room-row 1, filled bottom to top.
	Near Orientation = "bottom"
	// Far puts the blackboard above the grid: the rightmost display column is
	// room-row 1, filled top to bottom.
	Far Orientation = "top"
)

// ParseOrientation accepts near/far as well as the snapshot values bottom/top.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "near", "bottom", "":
		return Near, nil
	case "far", "top":
		return Far, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// Valid reports whether o is Near or Far.
func (o Orientation) Valid() bool {
	return o == Near || o == Far
}

// Name returns the short name near/far.
func (o Orientation) Name() string {
	if o == Far {
		return "far"
	}
	return "near"
}

// Label returns the classroom description of the orientation.
func (o Orientation) Label() string {
	if o == Far {
		return "黑板在上"
	}
	return "黑板在下"
}

// Dimensions are the grid size in display terms: Rows display rows (seats per
// room-row) by Cols display columns (room-rows).
type Dimensions struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Validate checks both axes against [MinDimension, MaxDimension].
func (d Dimensions) Validate() error {
	if d.Rows < MinDimension || d.Rows > MaxDimension || d.Cols < MinDimension || d.Cols > MaxDimension {
		return fmt.Errorf("%w: got %d×%d", ErrInvalidDimensions, d.Rows, d.Cols)
	}
	return nil
}

// Total is the number of seats.
func (d Dimensions) Total() int {
	return d.Rows * d.Cols
}

// Coord is an orientation-independent seat position. Col is the room-row
// counted from the front, Row the seat within that room-row.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Mapper translates between display indexes and logical coordinates for one
// grid size and orientation. It is a value type with no state of its own.
type Mapper struct {
	Rows        int
	Cols        int
	Orientation Orientation
}

// NewMapper builds a Mapper for d and o.
func NewMapper(d Dimensions, o Orientation) Mapper {
	return Mapper{Rows: d.Rows, Cols: d.Cols, Orientation: o}
}

// Size is the number of display indexes.
func (m Mapper) Size() int {
	return m.Rows * m.Cols
}

// Contains reports whether i is a valid display index.
func (m Mapper) Contains(i int) bool {
	return i >= 0 && i < m.Size()
}

// ContainsCoord reports whether c lies inside the matrix.
func (m Mapper) ContainsCoord(c Coord) bool {
	return c.Col >= 0 && c.Col < m.Cols && c.Row >= 0 && c.Row < m.Rows
}

// ToLogical maps a display index to its logical coordinate. The display is
// row-major with Cols columns.
func (m Mapper) ToLogical(i int) Coord {
	r, c := i/m.Cols, i%m.Cols
	if m.Orientation == Far {
		return Coord{Col: m.Cols - 1 - c, Row: r}
	}
	return Coord{Col: c, Row: m.Rows - 1 - r}
}

// ToDisplay is the exact inverse of ToLogical.
func (m Mapper) ToDisplay(p Coord) int {
	var r, c int
	if m.Orientation == Far {
		r, c = p.Row, m.Cols-1-p.Col
	} else {
		r, c = m.Rows-1-p.Row, p.Col
	}
	return r*m.Cols + c
}

// Mirror reflects i left-right within its display row.
//
// This is not the orientation switch: the full switch also flips rows, so
// Mirror must never be used to carry student identity or disabled seats
// across orientations. It is kept for display-level tooling only.
func (m Mapper) Mirror(i int) int {
	r, c := i/m.Cols, i%m.Cols
	return r*m.Cols + (m.Cols - 1 - c)
}

// RowLabel is the 1-based room-row number used in conflict reports for
// logical column col: col+1 under Near, Cols-col under Far.
func (m Mapper) RowLabel(col int) int {
	if m.Orientation == Far {
		return m.Cols - col
	}
	return col + 1
}
