// internal/session/state.go
package session

import "time"

// StateKind is the lifecycle phase of a printer session
type StateKind string

const (
	StateIdle       StateKind = "idle"
	StateConnecting StateKind = "connecting"
	StateSending    StateKind = "sending"
	StateFailed     StateKind = "failed"
)

// State is the observable state of one printer session
type State struct {
	Kind                StateKind `json:"state"`
	Reason              string    `json:"reason,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Status is a snapshot row for the API
type Status struct {
	PrinterID  string  `json:"printer_id"`
	State      State   `json:"state"`
	QueueDepth int     `json:"queue_depth"`
	Delivered  int64   `json:"delivered"`
	Failed     int64   `json:"failed"`
	Rejected   int64   `json:"rejected"`
	LastBytes  int     `json:"last_bytes"`
	LastMillis float64 `json:"last_duration_ms"`
}
