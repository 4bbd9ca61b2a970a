package handler

import "github.com/iliyamo/classroom-seating/internal/seating"

// seatView is one cell of the display grid, in display order.
type seatView struct {
	Index    int              `json:"index"`
	Col      int              `json:"col"`
	Row      int              `json:"row"`
	RowLabel int              `json:"row_label"`
	Student  *seating.Student `json:"student"`
	Locked   bool             `json:"locked"`
	Disabled bool             `json:"disabled"`
}

type sessionView struct {
	ID          string              `json:"id"`
	Orientation seating.Orientation `json:"orientation"`
	Summary     seating.Summary     `json:"summary"`
	Seats       []seatView          `json:"seats"`
	Roster      []seating.Student   `json:"roster"`
	Unassigned  []seating.Student   `json:"unassigned"`
}

func newSessionView(id string, s *seating.Session) sessionView {
	m := s.Mapper()
	display := s.Display()
	seats := make([]seatView, len(display))
	for i, st := range display {
		p := m.ToLogical(i)
		seats[i] = seatView{
			Index:    i,
			Col:      p.Col,
			Row:      p.Row,
			RowLabel: m.RowLabel(p.Col),
			Student:  st,
			Locked:   s.IsLocked(i),
			Disabled: s.IsDisabled(i),
		}
	}
	roster := s.Roster()
	if roster == nil {
		roster = []seating.Student{}
	}
	return sessionView{
		ID:          id,
		Orientation: s.Orientation(),
		Summary:     s.Summary(),
		Seats:       seats,
		Roster:      roster,
		Unassigned:  s.Unassigned(),
	}
}
