package seating

import (
	"fmt"
	"strings"
)

// Mode is the arrangement requested by the user.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeGender Mode = "gender"
)

// ParseMode accepts "random" and "gender".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRandom:
		return ModeRandom, nil
	case ModeGender:
		return ModeGender, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Strategy is the algorithm actually run. ModeRandom runs StrategyLocked
// whenever any seat is locked.
type Strategy string

const (
	StrategyRandom Strategy = "random"
	StrategyLocked Strategy = "locked"
	StrategyGender Strategy = "gender"
)

// Conflict is a locked student whose gender differs from the one the
// alternating pattern expects at that seat.
type Conflict struct {
	Col          int    `json:"col"`
	Row          int    `json:"row"`
	RowLabel     int    `json:"row_label"`
	DisplayIndex int    `json:"display_index"`
	StudentID    string `json:"student_id"`
	Expected     Gender `json:"expected"`
	Actual       Gender `json:"actual"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("第%d排第%d個座位：應為 %s，但鎖定了 %s", c.RowLabel, c.Row+1, c.Expected.Label(), c.Actual.Label())
}

// ConfirmFunc is asked whether to continue when locked seats conflict with
// the gender pattern. Returning false cancels the arrangement. A nil
// ConfirmFunc always continues.
type ConfirmFunc func(conflicts []Conflict) bool

// Report describes a completed arrangement.
type Report struct {
	Mode      Mode       `json:"mode"`
	Strategy  Strategy   `json:"strategy"`
	Preserved int        `json:"preserved"`
	Placed    int        `json:"placed"`
	Unplaced  int        `json:"unplaced"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Message is the status line shown after an arrangement.
func (r *Report) Message() string {
	name := "隨機排座"
	if r.Mode == ModeGender {
		name = "男女隔開排座"
	}
	msg := "已完成" + name
	if r.Preserved > 0 {
		msg += fmt.Sprintf("（保留 %d 個鎖定座位）", r.Preserved)
	}
	return msg
}

// pin is a locked student kept at its logical position.
type pin struct {
	at      Coord
	display int
	student *Student
}

// Arrange refills the seat matrix from the roster. Locked students stay
// where they are; disabled seats stay empty. The capacity check runs before
// anything is written, and a cancelled or failed call changes nothing.
func (s *Session) Arrange(mode Mode, confirm ConfirmFunc) (*Report, error) {
	if mode != ModeRandom && mode != ModeGender {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if len(s.roster) == 0 {
		return nil, ErrEmptyRoster
	}
	available := s.dims.Total() - s.disabled.Len()
	if len(s.roster) > available {
		return nil, fmt.Errorf("%w: %d students, %d seats available", ErrCapacityExceeded, len(s.roster), available)
	}

	pins := s.pins()
	report := &Report{Mode: mode, Preserved: len(pins)}

	var next Matrix
	var unplaced int
	switch mode {
	case ModeRandom:
		report.Strategy = StrategyRandom
		if len(pins) > 0 {
			report.Strategy = StrategyLocked
		}
		next, unplaced = s.fillRandom(pins)
	case ModeGender:
		report.Strategy = StrategyGender
		expected := s.expectedGenders(s.firstGender(pins))
		report.Conflicts = s.conflicts(pins, expected)
		if len(report.Conflicts) > 0 && confirm != nil && !confirm(report.Conflicts) {
			return nil, ErrArrangementCancelled
		}
		next, unplaced = s.fillGender(pins, expected)
	}

	report.Unplaced = unplaced
	report.Placed = len(s.available(pins)) - unplaced
	s.matrix = next
	s.rebuildDisplay()
	return report, nil
}

// pins collects locked students with their logical positions, in display
// order.
func (s *Session) pins() []pin {
	m := s.mapper()
	out := make([]pin, 0, s.locked.Len())
	for _, i := range s.locked.Sorted() {
		if st := s.display[i]; st != nil {
			out = append(out, pin{at: m.ToLogical(i), display: i, student: st})
		}
	}
	return out
}

// available is the roster minus every student pinned by id.
func (s *Session) available(pins []pin) []Student {
	pinned := make(map[string]bool, len(pins))
	for _, p := range pins {
		pinned[p.student.ID] = true
	}
	out := make([]Student, 0, len(s.roster))
	for _, st := range s.roster {
		if !pinned[st.ID] {
			out = append(out, st)
		}
	}
	return out
}

// seeded returns a fresh matrix holding only the pinned students.
func (s *Session) seeded(pins []pin) Matrix {
	next := NewMatrix(s.dims)
	for _, p := range pins {
		next.Set(p.at, p.student.Clone())
	}
	return next
}

// eachOpenCell calls fn for every cell that is neither pre-filled nor
// disabled, front room-row first, then the next.
func (s *Session) eachOpenCell(next Matrix, fn func(p Coord)) {
	m := s.mapper()
	for col := 0; col < s.dims.Cols; col++ {
		for row := 0; row < s.dims.Rows; row++ {
			p := Coord{Col: col, Row: row}
			if next.Get(p) != nil || s.disabled.Has(m.ToDisplay(p)) {
				continue
			}
			fn(p)
		}
	}
}

func (s *Session) shuffled(in []Student) []Student {
	out := cloneRoster(in)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// fillRandom covers both the plain and the locked-aware strategy: with no
// pins the seeded matrix is simply empty.
func (s *Session) fillRandom(pins []pin) (Matrix, int) {
	next := s.seeded(pins)
	queue := s.shuffled(s.available(pins))
	k := 0
	s.eachOpenCell(next, func(p Coord) {
		if k < len(queue) {
			st := queue[k]
			next.Set(p, &st)
			k++
		}
	})
	return next, len(queue) - k
}

// firstGender picks the gender of logical seat (0,0): a locked occupant
// wins, then the roster majority, then male.
func (s *Session) firstGender(pins []pin) Gender {
	for _, p := range pins {
		if p.at.Col == 0 && p.at.Row == 0 && p.student.Gender.Valid() {
			return p.student.Gender
		}
	}
	males, females := 0, 0
	for _, st := range s.roster {
		switch st.Gender {
		case Male:
			males++
		case Female:
			females++
		}
	}
	if females > males {
		return Female
	}
	return Male
}

// expectedGenders builds the alternating pattern: genders alternate seat to
// seat within a room-row, and each room-row starts opposite to the previous
// one.
func (s *Session) expectedGenders(first Gender) [][]Gender {
	out := make([][]Gender, s.dims.Cols)
	seed := first
	for col := range out {
		if col > 0 {
			seed = out[col-1][0].Opposite()
		}
		out[col] = make([]Gender, s.dims.Rows)
		g := seed
		for row := range out[col] {
			out[col][row] = g
			g = g.Opposite()
		}
	}
	return out
}

func (s *Session) conflicts(pins []pin, expected [][]Gender) []Conflict {
	m := s.mapper()
	var out []Conflict
	for _, p := range pins {
		want := expected[p.at.Col][p.at.Row]
		if p.student.Gender == want {
			continue
		}
		out = append(out, Conflict{
			Col:          p.at.Col,
			Row:          p.at.Row,
			RowLabel:     m.RowLabel(p.at.Col),
			DisplayIndex: p.display,
			StudentID:    p.student.ID,
			Expected:     want,
			Actual:       p.student.Gender,
		})
	}
	return out
}

// fillGender fills open cells from two shuffled pools, preferring the pool
// matching the expected gender and falling back to the other one.
func (s *Session) fillGender(pins []pin, expected [][]Gender) (Matrix, int) {
	next := s.seeded(pins)
	var males, females []Student
	for _, st := range s.available(pins) {
		switch st.Gender {
		case Male:
			males = append(males, st)
		case Female:
			females = append(females, st)
		}
	}
	males, females = s.shuffled(males), s.shuffled(females)
	pop := func(pool *[]Student) *Student {
		n := len(*pool)
		st := (*pool)[n-1]
		*pool = (*pool)[:n-1]
		return &st
	}

	s.eachOpenCell(next, func(p Coord) {
		want, other := &males, &females
		if expected[p.Col][p.Row] == Female {
			want, other = &females, &males
		}
		switch {
		case len(*want) > 0:
			next.Set(p, pop(want))
		case len(*other) > 0:
			next.Set(p, pop(other))
		}
	})

	unplaced := len(males) + len(females)
	for _, st := range s.available(pins) {
		if !st.Gender.Valid() {
			unplaced++
		}
	}
	return next, unplaced
}
