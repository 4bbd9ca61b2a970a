package model

import (
	"encoding/json"
	"time"
)

// Classroom is a saved seating chart in the `classrooms` table. Snapshot
// holds the exported seating document verbatim; Rows, Cols and Students are
// copied out of it so listings do not need to decode the JSON.
type Classroom struct {
	ID        uint64          `json:"id"`
	OwnerID   uint64          `json:"-"`
	Name      string          `json:"name"`
	Rows      int             `json:"rows"`
	Cols      int             `json:"cols"`
	Students  int             `json:"students"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
