// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// ArrangementQueue is the durable queue arrangement events are routed to.
const ArrangementQueue = "arrangement.completed"

// ArrangementCompletedEvent is published after an auto-arrangement has been
// applied to a session. It carries the report counts so the consumer can log
// the run without loading the session.
type ArrangementCompletedEvent struct {
	OwnerID     uint64   `json:"owner_id"`
	SessionID   string   `json:"session_id"`
	Mode        string   `json:"mode"`
	Strategy    string   `json:"strategy"`
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
	Preserved   int      `json:"preserved"`
	Placed      int      `json:"placed"`
	Unplaced    int      `json:"unplaced"`
	Conflicts   []string `json:"conflicts,omitempty"`
	Forced      bool     `json:"forced"`
	CompletedAt string   `json:"completed_at"`
}
