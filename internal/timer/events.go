package timer

import "time"

// State represents the current controller mode.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// EventType defines the type of controller event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventTick        EventType = "tick"
)

// Event is published to subscribers on transitions and on every tick while
// running.
type Event struct {
	Type           EventType
	State          State
	ElapsedSeconds int64
	At             time.Time
}

// Status is a point-in-time view of the controller.
type Status struct {
	State          State `json:"state"`
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}
