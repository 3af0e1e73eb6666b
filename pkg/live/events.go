package live

import "time"

// Event is the interface for all session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the connection state changes.
type StateChangedEvent struct {
	From ConnectionState `json:"from"`
	To   ConnectionState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// TranscriptDeltaEvent is emitted as incremental transcription updates arrive.
type TranscriptDeltaEvent struct {
	Source Speaker `json:"source"`
	Delta  string  `json:"delta"`
}

func (e *TranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// TurnCompleteEvent is emitted when the remote signals the end of a turn.
// Every transcript entry is final once this fires.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }

// BoxesUpdatedEvent is emitted when a tool-call batch replaces the overlay set.
type BoxesUpdatedEvent struct {
	Boxes []BoundingBox `json:"boxes"`
}

func (e *BoxesUpdatedEvent) EventType() string { return "boxes.updated" }

// BoxesClearedEvent is emitted when the overlay expiry window elapses.
type BoxesClearedEvent struct{}

func (e *BoxesClearedEvent) EventType() string { return "boxes.cleared" }

// AudioScheduledEvent is emitted when an inbound audio chunk is scheduled for
// playback.
type AudioScheduledEvent struct {
	StartAt  time.Duration `json:"start_at"`
	Duration time.Duration `json:"duration"`
}

func (e *AudioScheduledEvent) EventType() string { return "audio.scheduled" }

// ErrorEvent is emitted when the session fails.
type ErrorEvent struct {
	Err error `json:"-"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// ClosedEvent is emitted when the remote ends the session.
type ClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *ClosedEvent) EventType() string { return "session.closed" }

// NoticeEvent carries a one-shot user-visible notice (permission or transport
// failures).
type NoticeEvent struct {
	Message string `json:"message"`
}

func (e *NoticeEvent) EventType() string { return "notice" }
