package live

import (
	"time"

	"github.com/spotlight-go/spotlight/pkg/live/protocol"
)

// SessionConfig holds all configuration for a live session.
type SessionConfig struct {
	// Model is the live multimodal model to converse with.
	Model string `json:"model"`

	// System is the system instruction declared at session setup.
	System string `json:"system,omitempty"`

	// ResponseModalities declares what the remote streams back.
	// Default: audio only.
	ResponseModalities []string `json:"response_modalities,omitempty"`

	// InputSampleRate is the outbound microphone PCM rate in Hz. Default: 16000.
	InputSampleRate int `json:"input_sample_rate"`

	// OutputSampleRate is the inbound speech PCM rate in Hz. Default: 24000.
	OutputSampleRate int `json:"output_sample_rate"`

	// Channels is the audio channel count for both directions. Default: 1.
	Channels int `json:"channels"`

	// CaptureBlockSize is the fixed block size, in samples, the capture
	// pipeline restructures the microphone stream into. Default: 2048.
	CaptureBlockSize int `json:"capture_block_size"`

	// FrameInterval is the camera sampling period. Default: 500ms (2 fps).
	FrameInterval time.Duration `json:"frame_interval"`

	// JPEGQuality is the lossy compression quality factor for sampled
	// frames, 1-100. Default: 70.
	JPEGQuality int `json:"jpeg_quality"`

	// BoxExpiry is how long highlight boxes stay on screen after the last
	// tool-call batch. Deployments use either 1s or 3s; default: 1s.
	BoxExpiry time.Duration `json:"box_expiry"`

	// BatchBoxes selects the batched highlight_objects tool schema. When
	// false the single highest-confidence box variant is declared instead.
	// Default: true.
	BatchBoxes bool `json:"batch_boxes"`

	// EventBuffer is the capacity of the Events channel. Default: 128.
	EventBuffer int `json:"event_buffer"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:              "models/gemini-2.0-flash-live-001",
		ResponseModalities: []string{protocol.ModalityAudio},
		InputSampleRate:    16000,
		OutputSampleRate:   24000,
		Channels:           1,
		CaptureBlockSize:   2048,
		FrameInterval:      500 * time.Millisecond,
		JPEGQuality:        70,
		BoxExpiry:          time.Second,
		BatchBoxes:         true,
		EventBuffer:        128,
	}
}

func (c *SessionConfig) applyDefaults() {
	def := DefaultSessionConfig()
	if c.Model == "" {
		c.Model = def.Model
	}
	if len(c.ResponseModalities) == 0 {
		c.ResponseModalities = def.ResponseModalities
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = def.InputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = def.OutputSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = def.Channels
	}
	if c.CaptureBlockSize <= 0 {
		c.CaptureBlockSize = def.CaptureBlockSize
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = def.FrameInterval
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.BoxExpiry <= 0 {
		c.BoxExpiry = def.BoxExpiry
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
}

// setup builds the session contract declared on connect: response modality,
// the registered highlight tool schema, and transcription on both directions.
func (c SessionConfig) setup() protocol.Setup {
	setup := protocol.Setup{
		Model:                    c.Model,
		GenerationConfig:         &protocol.GenerationConfig{ResponseModalities: c.ResponseModalities},
		Tools:                    protocol.HighlightToolDeclarations(c.BatchBoxes),
		InputAudioTranscription:  &protocol.TranscriptionConfig{},
		OutputAudioTranscription: &protocol.TranscriptionConfig{},
	}
	if c.System != "" {
		setup.SystemInstruction = &protocol.Content{Parts: []protocol.Part{{Text: c.System}}}
	}
	return setup
}
