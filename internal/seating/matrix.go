package seating

import "sort"

// Matrix is the authoritative seat store, indexed [Col][Row]. A nil cell is
// an empty seat.
type Matrix [][]*Student

// NewMatrix allocates an empty Cols×Rows matrix for d.
func NewMatrix(d Dimensions) Matrix {
	m := make(Matrix, d.Cols)
	for col := range m {
		m[col] = make([]*Student, d.Rows)
	}
	return m
}

// Get returns the student at p, or nil.
func (m Matrix) Get(p Coord) *Student {
	return m[p.Col][p.Row]
}

// Set writes s at p.
func (m Matrix) Set(p Coord, s *Student) {
	m[p.Col][p.Row] = s
}

// Clone deep-copies the matrix including the students it holds.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for col := range m {
		out[col] = make([]*Student, len(m[col]))
		for row, s := range m[col] {
			out[col][row] = s.Clone()
		}
	}
	return out
}

// Equal reports whether two matrices hold the same students (by value) in
// the same cells.
func (m Matrix) Equal(o Matrix) bool {
	if len(m) != len(o) {
		return false
	}
	for col := range m {
		if len(m[col]) != len(o[col]) {
			return false
		}
		for row := range m[col] {
			a, b := m[col][row], o[col][row]
			if (a == nil) != (b == nil) {
				return false
			}
			if a != nil && *a != *b {
				return false
			}
		}
	}
	return true
}

// IndexSet is a set of display indexes.
type IndexSet map[int]struct{}

// NewIndexSet builds a set from the given indexes.
func NewIndexSet(idx ...int) IndexSet {
	s := make(IndexSet, len(idx))
	for _, i := range idx {
		s[i] = struct{}{}
	}
	return s
}

func (s IndexSet) Add(i int)    { s[i] = struct{}{} }
func (s IndexSet) Remove(i int) { delete(s, i) }
func (s IndexSet) Len() int     { return len(s) }

func (s IndexSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Sorted returns the members in ascending order; never nil.
func (s IndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clone copies the set.
func (s IndexSet) Clone() IndexSet {
	out := make(IndexSet, len(s))
	for i := range s {
		out[i] = struct{}{}
	}
	return out
}
