package seating

import "fmt"

// Command is the payload of a drop onto a seat. The concrete types are
// MoveFromRoster and MoveFromSeat.
type Command interface {
	command()
}

// MoveFromRoster drops a roster student onto a seat.
type MoveFromRoster struct {
	Student Student
}

// MoveFromSeat drags the occupant of another seat.
type MoveFromSeat struct {
	Index int
}

func (MoveFromRoster) command() {}
func (MoveFromSeat) command()   {}

// HandleDrop applies cmd with target as the destination seat. Roster drops
// assign (and auto-lock); seat drops swap.
func (s *Session) HandleDrop(target int, cmd Command) error {
	if err := s.checkIndex(target); err != nil {
		return err
	}
	if s.disabled.Has(target) {
		return fmt.Errorf("%w: cannot drop onto seat %d", ErrSeatDisabled, target+1)
	}
	switch c := cmd.(type) {
	case MoveFromRoster:
		return s.Assign(c.Student, target)
	case MoveFromSeat:
		if err := s.checkIndex(c.Index); err != nil {
			return err
		}
		if s.disabled.Has(c.Index) {
			return fmt.Errorf("%w: seat %d", ErrSeatDisabled, c.Index+1)
		}
		if s.display[c.Index] == nil {
			return fmt.Errorf("%w: nothing to move from seat %d", ErrSeatEmpty, c.Index+1)
		}
		return s.Swap(c.Index, target)
	default:
		return fmt.Errorf("unsupported drop command %T", cmd)
	}
}
