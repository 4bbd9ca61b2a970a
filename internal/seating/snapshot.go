package seating

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the persisted form of a session. Seating is display-indexed,
// so restoring derives the matrix from it rather than the other way round.
// Field names match the exported seating-chart files.
type Snapshot struct {
	Rows          int         `json:"rows"`
	Cols          int         `json:"cols"`
	Students      []Student   `json:"students"`
	Seating       []*Student  `json:"seating"`
	FixedSeats    []int       `json:"fixedSeats"`
	DisabledSeats []int       `json:"disabledSeats"`
	ViewMode      Orientation `json:"viewMode"`
}

// snapshotFile mirrors Snapshot with pointers so absent fields can be told
// apart from zero values.
type snapshotFile struct {
	Rows          *int       `json:"rows"`
	Cols          *int       `json:"cols"`
	Students      []Student  `json:"students"`
	Seating       []*Student `json:"seating"`
	FixedSeats    []int      `json:"fixedSeats"`
	DisabledSeats []int      `json:"disabledSeats"`
	ViewMode      *string    `json:"viewMode"`
}

// SnapshotFilename is the export file name for the given day.
func SnapshotFilename(t time.Time) string {
	return "座位表_" + t.UTC().Format("2006-01-02") + ".json"
}

// Snapshot captures the session as one consistent unit.
func (s *Session) Snapshot() Snapshot {
	students := s.Roster()
	if students == nil {
		students = []Student{}
	}
	return Snapshot{
		Rows:          s.dims.Rows,
		Cols:          s.dims.Cols,
		Students:      students,
		Seating:       s.Display(),
		FixedSeats:    s.locked.Sorted(),
		DisabledSeats: s.disabled.Sorted(),
		ViewMode:      s.orientation,
	}
}

// ExportJSON serializes the snapshot with two-space indentation.
func (s *Session) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}

// ParseSnapshot decodes a snapshot document, filling defaults for optional
// fields. rows and cols are required.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if f.Rows == nil || f.Cols == nil {
		return Snapshot{}, fmt.Errorf("%w: rows and cols are required", ErrMalformedSnapshot)
	}
	o := Near
	if f.ViewMode != nil {
		parsed, err := ParseOrientation(*f.ViewMode)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		o = parsed
	}
	snap := Snapshot{
		Rows:          *f.Rows,
		Cols:          *f.Cols,
		Students:      f.Students,
		Seating:       f.Seating,
		FixedSeats:    f.FixedSeats,
		DisabledSeats: f.DisabledSeats,
		ViewMode:      o,
	}
	if snap.Students == nil {
		snap.Students = []Student{}
	}
	return snap, nil
}

// ImportJSON parses data and restores it into the session.
func (s *Session) ImportJSON(data []byte) error {
	snap, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	return s.Restore(snap)
}

// Restore replaces the whole session state with snap. The snapshot is fully
// validated first; on error the session is unchanged. Locks pointing at
// empty seats are dropped.
func (s *Session) Restore(snap Snapshot) error {
	d := Dimensions{Rows: snap.Rows, Cols: snap.Cols}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	o := snap.ViewMode
	if o == "" {
		o = Near
	}
	if !o.Valid() {
		return fmt.Errorf("%w: viewMode %q", ErrMalformedSnapshot, o)
	}
	if len(snap.Seating) > d.Total() {
		return fmt.Errorf("%w: %d seating entries for %d seats", ErrMalformedSnapshot, len(snap.Seating), d.Total())
	}

	m := NewMapper(d, o)
	matrix := NewMatrix(d)
	for i, st := range snap.Seating {
		if st == nil {
			continue
		}
		if st.ID == "" {
			return fmt.Errorf("%w: seat %d holds a student without id", ErrMalformedSnapshot, i+1)
		}
		matrix.Set(m.ToLogical(i), st.Clone())
	}

	disabled := NewIndexSet()
	for _, i := range snap.DisabledSeats {
		if !m.Contains(i) {
			return fmt.Errorf("%w: disabled seat %d out of range", ErrMalformedSnapshot, i)
		}
		if matrix.Get(m.ToLogical(i)) != nil {
			return fmt.Errorf("%w: disabled seat %d is occupied", ErrMalformedSnapshot, i+1)
		}
		disabled.Add(i)
	}
	locked := NewIndexSet()
	for _, i := range snap.FixedSeats {
		if !m.Contains(i) {
			return fmt.Errorf("%w: locked seat %d out of range", ErrMalformedSnapshot, i)
		}
		if disabled.Has(i) {
			return fmt.Errorf("%w: seat %d is both locked and disabled", ErrMalformedSnapshot, i+1)
		}
		if matrix.Get(m.ToLogical(i)) == nil {
			continue
		}
		locked.Add(i)
	}

	s.dims = d
	s.orientation = o
	s.roster = cloneRoster(snap.Students)
	s.matrix = matrix
	s.locked = locked
	s.disabled = disabled
	s.rebuildDisplay()
	return nil
}

// FromSnapshot builds a new session from snap.
func FromSnapshot(snap Snapshot, opts *Options) (*Session, error) {
	s, err := New(MinDimension, MinDimension, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Restore(snap); err != nil {
		return nil, err
	}
	return s, nil
}
