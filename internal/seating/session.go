package seating

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Options configures a Session.
type Options struct {
	Seed        int64       // Seed for reproducible arrangements (0 = time based)
	Orientation Orientation // Initial orientation; zero value means Near
}

// Session is one editing session: roster, seat matrix, the derived display
// sequence and the lock/disable constraint sets. Every exported method leaves
// the matrix, the display sequence and both sets mutually consistent, and a
// method that returns an error has not changed anything.
//
// A Session is not safe for concurrent use.
type Session struct {
	dims        Dimensions
	orientation Orientation
	roster      []Student
	matrix      Matrix
	display     []*Student
	locked      IndexSet
	disabled    IndexSet
	rng         *rand.Rand
}

// New creates an empty rows×cols session.
func New(rows, cols int, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}
	d := Dimensions{Rows: rows, Cols: cols}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	o := opts.Orientation
	if o == "" {
		o = Near
	}
	if !o.Valid() {
		return nil, fmt.Errorf("invalid orientation %q", o)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		orientation: o,
		rng:         rand.New(rand.NewSource(seed)),
	}
	s.reset(d)
	return s, nil
}

// reset discards all seating for a new grid size. The roster is kept.
func (s *Session) reset(d Dimensions) {
	s.dims = d
	s.matrix = NewMatrix(d)
	s.locked = NewIndexSet()
	s.disabled = NewIndexSet()
	s.rebuildDisplay()
}

func (s *Session) mapper() Mapper {
	return NewMapper(s.dims, s.orientation)
}

// rebuildDisplay recomputes the display sequence from the matrix.
func (s *Session) rebuildDisplay() {
	m := s.mapper()
	display := make([]*Student, m.Size())
	for i := range display {
		display[i] = s.matrix.Get(m.ToLogical(i))
	}
	s.display = display
}

// writeAtDisplay stores st in the matrix cell behind display index i. The
// display cache is not touched; callers rebuild it.
func (s *Session) writeAtDisplay(i int, st *Student) {
	s.matrix.Set(s.mapper().ToLogical(i), st)
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= s.dims.Total() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, i, s.dims.Total())
	}
	return nil
}

// indexOf returns the first display index holding a student with id, or -1.
func (s *Session) indexOf(id string) int {
	for i, st := range s.display {
		if st != nil && st.ID == id {
			return i
		}
	}
	return -1
}

// Resize discards every assignment and constraint and switches to a new grid.
// The roster is kept; every student becomes unassigned.
func (s *Session) Resize(rows, cols int) error {
	d := Dimensions{Rows: rows, Cols: cols}
	if err := d.Validate(); err != nil {
		return err
	}
	s.reset(d)
	return nil
}

// SetOrientation switches the viewing orientation. The matrix is untouched.
// Locks are rebuilt by finding each locked student again in the new display
// sequence; disabled seats keep their logical coordinate.
func (s *Session) SetOrientation(o Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("invalid orientation %q", o)
	}
	if o == s.orientation {
		return nil
	}
	old := s.mapper()

	lockedIDs := make([]string, 0, s.locked.Len())
	for _, i := range s.locked.Sorted() {
		if st := s.display[i]; st != nil {
			lockedIDs = append(lockedIDs, st.ID)
		}
	}
	disabledAt := make([]Coord, 0, s.disabled.Len())
	for _, i := range s.disabled.Sorted() {
		disabledAt = append(disabledAt, old.ToLogical(i))
	}

	s.orientation = o
	s.rebuildDisplay()
	next := s.mapper()

	s.locked = NewIndexSet()
	for _, id := range lockedIDs {
		if i := s.indexOf(id); i >= 0 {
			s.locked.Add(i)
		}
	}
	s.disabled = NewIndexSet()
	for _, p := range disabledAt {
		s.disabled.Add(next.ToDisplay(p))
	}
	return nil
}

// Lock pins the student at seat i. Disabled and empty seats cannot be locked.
func (s *Session) Lock(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if s.disabled.Has(i) {
		return fmt.Errorf("%w: seat %d cannot be locked", ErrSeatDisabled, i+1)
	}
	if s.display[i] == nil {
		return fmt.Errorf("%w: seat %d cannot be locked", ErrSeatEmpty, i+1)
	}
	s.locked.Add(i)
	return nil
}

// Unlock releases seat i.
func (s *Session) Unlock(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.locked.Remove(i)
	return nil
}

// ToggleLock flips the lock on seat i and reports the new state.
func (s *Session) ToggleLock(i int) (bool, error) {
	if err := s.checkIndex(i); err != nil {
		return false, err
	}
	if s.locked.Has(i) {
		s.locked.Remove(i)
		return false, nil
	}
	if err := s.Lock(i); err != nil {
		return false, err
	}
	return true, nil
}

// Disable takes seat i out of use. Its student, if any, becomes unassigned
// and its lock is dropped.
func (s *Session) Disable(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.disabled.Add(i)
	s.locked.Remove(i)
	s.writeAtDisplay(i, nil)
	s.rebuildDisplay()
	return nil
}

// Enable puts seat i back into use.
func (s *Session) Enable(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.disabled.Remove(i)
	return nil
}

// ToggleDisabled flips seat i between disabled and enabled and reports the
// new state.
func (s *Session) ToggleDisabled(i int) (bool, error) {
	if err := s.checkIndex(i); err != nil {
		return false, err
	}
	if s.disabled.Has(i) {
		s.disabled.Remove(i)
		return false, nil
	}
	return true, s.Disable(i)
}

// Assign places st at target and locks the seat, so direct placements
// survive later auto-arrangement. A student already seated elsewhere must be
// moved with Swap instead; that check comes before the target seat's lock
// and disabled checks.
func (s *Session) Assign(st Student, target int) error {
	if err := s.checkIndex(target); err != nil {
		return err
	}
	if at := s.indexOf(st.ID); at >= 0 && at != target {
		return fmt.Errorf("%w: %s is at seat %d", ErrAlreadySeated, st.Name, at+1)
	}
	if s.locked.Has(target) && s.display[target] != nil {
		return fmt.Errorf("%w: seat %d", ErrSeatLocked, target+1)
	}
	if s.disabled.Has(target) {
		return fmt.Errorf("%w: seat %d", ErrSeatDisabled, target+1)
	}
	c := st
	s.writeAtDisplay(target, &c)
	s.rebuildDisplay()
	s.locked.Add(target)
	return nil
}

// Swap exchanges the occupants of src and dst. A lock follows the student
// who was locked: it moves with them to dst, and src keeps a lock only while
// it still holds someone.
func (s *Session) Swap(src, dst int) error {
	if err := s.checkIndex(src); err != nil {
		return err
	}
	if err := s.checkIndex(dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	if s.disabled.Has(dst) {
		return fmt.Errorf("%w: seat %d", ErrSeatDisabled, dst+1)
	}
	if s.disabled.Has(src) {
		return fmt.Errorf("%w: seat %d", ErrSeatDisabled, src+1)
	}
	if s.locked.Has(dst) && s.display[dst] != nil {
		return fmt.Errorf("%w: seat %d", ErrSeatLocked, dst+1)
	}

	moving, displaced := s.display[src], s.display[dst]
	s.writeAtDisplay(src, displaced)
	s.writeAtDisplay(dst, moving)
	s.rebuildDisplay()

	srcWasLocked, dstWasLocked := s.locked.Has(src), s.locked.Has(dst)
	if srcWasLocked {
		s.locked.Remove(src)
		if displaced != nil {
			s.locked.Add(src)
		}
	}
	if dstWasLocked {
		s.locked.Remove(dst)
	}
	if moving != nil && srcWasLocked {
		s.locked.Add(dst)
	}
	return nil
}

// Unassign empties seat i and drops its lock. It returns the student who was
// there, or nil when the seat was already empty.
func (s *Session) Unassign(i int) (*Student, error) {
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	st := s.display[i]
	if st == nil {
		return nil, nil
	}
	s.writeAtDisplay(i, nil)
	s.rebuildDisplay()
	s.locked.Remove(i)
	return st.Clone(), nil
}

// ClearSeats empties every seat and clears both constraint sets.
func (s *Session) ClearSeats() {
	s.reset(s.dims)
}

// ClearAll drops the roster as well as the seating.
func (s *Session) ClearAll() {
	s.roster = nil
	s.ClearSeats()
}

// SetRoster replaces the roster. Seating is left alone, so students already
// in a seat stay there even if the new roster does not list them.
func (s *Session) SetRoster(students []Student) {
	s.roster = cloneRoster(students)
}

// StudentByID returns the first roster entry with id.
func (s *Session) StudentByID(id string) (Student, bool) {
	for _, st := range s.roster {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// Dimensions returns the grid size.
func (s *Session) Dimensions() Dimensions { return s.dims }

// Orientation returns the current viewing orientation.
func (s *Session) Orientation() Orientation { return s.orientation }

// Mapper returns the coordinate mapper for the current grid and orientation.
func (s *Session) Mapper() Mapper { return s.mapper() }

// Display returns a copy of the display sequence; nil entries are empty seats.
func (s *Session) Display() []*Student {
	out := make([]*Student, len(s.display))
	for i, st := range s.display {
		out[i] = st.Clone()
	}
	return out
}

// Matrix returns a copy of the seat matrix.
func (s *Session) Matrix() Matrix { return s.matrix.Clone() }

// Locked returns the locked display indexes in ascending order.
func (s *Session) Locked() []int { return s.locked.Sorted() }

// Disabled returns the disabled display indexes in ascending order.
func (s *Session) Disabled() []int { return s.disabled.Sorted() }

// IsLocked reports whether seat i is locked.
func (s *Session) IsLocked(i int) bool { return s.locked.Has(i) }

// IsDisabled reports whether seat i is disabled.
func (s *Session) IsDisabled(i int) bool { return s.disabled.Has(i) }

// Roster returns a copy of the roster.
func (s *Session) Roster() []Student { return cloneRoster(s.roster) }

// Unassigned lists roster students that do not currently hold a seat.
func (s *Session) Unassigned() []Student {
	seated := make(map[string]bool, len(s.display))
	for _, st := range s.display {
		if st != nil {
			seated[st.ID] = true
		}
	}
	out := make([]Student, 0, len(s.roster))
	for _, st := range s.roster {
		if !seated[st.ID] {
			out = append(out, st)
		}
	}
	return out
}

// Summary is the occupancy line shown under the grid.
type Summary struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	Occupied int `json:"occupied"`
	Total    int `json:"total"`
	Disabled int `json:"disabled"`
	Locked   int `json:"locked"`
}

func (m Summary) String() string {
	return fmt.Sprintf("%d rows × %d cols | seated: %d | seats: %d | disabled: %d",
		m.Rows, m.Cols, m.Occupied, m.Total, m.Disabled)
}

// Summary counts occupied, total and disabled seats.
func (s *Session) Summary() Summary {
	occupied := 0
	for _, st := range s.display {
		if st != nil {
			occupied++
		}
	}
	return Summary{
		Rows:     s.dims.Rows,
		Cols:     s.dims.Cols,
		Occupied: occupied,
		Total:    s.dims.Total(),
		Disabled: s.disabled.Len(),
		Locked:   s.locked.Len(),
	}
}

// Format renders the display grid as text with room-row labels and the
// blackboard on the side the orientation puts it.
func (s *Session) Format() string {
	const width = 14
	var sb strings.Builder
	line := "+" + strings.Repeat(strings.Repeat("-", width)+"+", s.dims.Cols) + "\n"
	board := fmt.Sprintf("[ 黑板 / 講台 ]  %s\n", s.orientation.Label())

	labels := make([]string, s.dims.Cols)
	for c := range labels {
		n := c + 1
		if s.orientation == Far {
			n = s.dims.Cols - c
		}
		labels[c] = fmt.Sprintf(" %-*s", width, fmt.Sprintf("row %d", n))
	}
	labelLine := strings.Join(labels, "") + "\n"

	if s.orientation == Far {
		sb.WriteString(board)
		sb.WriteString(labelLine)
	}
	sb.WriteString(line)
	for r := 0; r < s.dims.Rows; r++ {
		sb.WriteString("|")
		for c := 0; c < s.dims.Cols; c++ {
			i := r*s.dims.Cols + c
			sb.WriteString(padCell(s.cellText(i), width))
			sb.WriteString("|")
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	if s.orientation != Far {
		sb.WriteString(labelLine)
		sb.WriteString(board)
	}
	sb.WriteString(s.Summary().String())
	sb.WriteString("\n")
	return sb.String()
}

func (s *Session) cellText(i int) string {
	switch {
	case s.disabled.Has(i):
		return " xx"
	case s.display[i] == nil:
		return " ."
	}
	st := s.display[i]
	mark := " "
	if s.locked.Has(i) {
		mark = "*"
	}
	return mark + st.ID + " " + st.Name
}

// padCell pads or truncates to width runes.
func padCell(text string, width int) string {
	r := []rune(text)
	if len(r) > width {
		return string(r[:width])
	}
	return text + strings.Repeat(" ", width-len(r))
}
