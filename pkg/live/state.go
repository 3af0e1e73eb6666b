package live

// ConnectionState represents the session lifecycle state. It is owned
// exclusively by the Session; transitions are the only externally observable
// lifecycle signal.
type ConnectionState int

const (
	// StateIdle is the rest state before start and after stop.
	StateIdle ConnectionState = iota
	// StateConnecting is set while the duplex session is being opened.
	StateConnecting
	// StateConnected is set once the remote acknowledges session setup.
	StateConnected
	// StateError is terminal for an attempt after a transport or credential
	// failure. The session may be restarted.
	StateError
	// StateClosed is terminal for an attempt after a remote-initiated close.
	StateClosed
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Speaker identifies a transcript lane.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// TranscriptEntry is one conversation bubble. While IsFinal is false the
// entry's text may still grow append-only.
type TranscriptEntry struct {
	Source  Speaker `json:"source"`
	Text    string  `json:"text"`
	IsFinal bool    `json:"is_final"`
}

// BoundingBox is an overlay box in normalized [0, 1] coordinates relative to
// the displayed frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

// Snapshot is the read-only state exposed to a rendering collaborator.
type Snapshot struct {
	State      ConnectionState
	Transcript []TranscriptEntry
	Boxes      []BoundingBox
}
