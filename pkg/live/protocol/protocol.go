// Package protocol defines the wire shapes exchanged with the live
// multimodal inference service over the duplex WebSocket, and the typed
// decode step for inbound frames.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MIME types for outbound media chunks.
const (
	MimeAudioPCM16k = "audio/pcm;rate=16000"
	MimeAudioPCM24k = "audio/pcm;rate=24000"
	MimeImageJPEG   = "image/jpeg"
)

// Response modalities for the session setup declaration.
const (
	ModalityAudio = "AUDIO"
	ModalityText  = "TEXT"
)

// Registered tool names for object highlighting.
const (
	ToolHighlightObjects = "highlight_objects"
	ToolHighlightObject  = "highlight_object"
)

// Blob carries a base64-encoded media payload.
type Blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

// Part is one piece of model or client content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is an ordered list of parts with an optional role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Schema describes a function parameter schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// FunctionDeclaration declares one callable tool to the remote model.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool groups function declarations in the setup message.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

// GenerationConfig declares the requested response modalities.
type GenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// TranscriptionConfig enables transcription for one direction. The empty
// object is the wire form that turns it on.
type TranscriptionConfig struct{}

// Setup is the session contract declared on connect.
type Setup struct {
	Model                    string               `json:"model"`
	GenerationConfig         *GenerationConfig    `json:"generationConfig,omitempty"`
	SystemInstruction        *Content             `json:"systemInstruction,omitempty"`
	Tools                    []Tool               `json:"tools,omitempty"`
	InputAudioTranscription  *TranscriptionConfig `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *TranscriptionConfig `json:"outputAudioTranscription,omitempty"`
}

// SetupMessage is the first client frame on a new session.
type SetupMessage struct {
	Setup Setup `json:"setup"`
}

// RealtimeInput carries outbound audio or image chunks.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

// RealtimeInputMessage is the client frame for streaming media.
type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// FunctionResponse acknowledges one tool invocation.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolResponse groups acknowledgments for a tool-call batch.
type ToolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

// ToolResponseMessage is the client frame acknowledging tool calls.
type ToolResponseMessage struct {
	ToolResponse ToolResponse `json:"toolResponse"`
}

// Transcription is an incremental speech-to-text fragment.
type Transcription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished,omitempty"`
}

// ServerContent carries model output: audio parts, transcripts, and the
// turn-complete signal.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// FunctionCall is one tool invocation requested by the remote model.
// Args are kept raw until validated by the typed decode step.
type FunctionCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolCall is a batch of function calls.
type ToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// GoAway signals an impending remote-initiated close.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ServerMessage is the union of inbound frame variants. Exactly one field is
// set for a recognized frame; a frame with no recognized variant is unknown
// and must be skipped, never treated as fatal.
type ServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	ToolCall      *ToolCall      `json:"toolCall,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// IsUnknown reports whether no recognized variant was present.
func (m *ServerMessage) IsUnknown() bool {
	return m.SetupComplete == nil && m.ServerContent == nil && m.ToolCall == nil && m.GoAway == nil
}

// DecodeServerMessage decodes one inbound text frame.
func DecodeServerMessage(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	return &msg, nil
}

// HighlightObject is one validated object from a highlight tool call.
type HighlightObject struct {
	Label string `json:"label"`
	// Box2D is [ymin, xmin, ymax, xmax] in [0, 1000] pixel space.
	Box2D []int `json:"box_2d"`
}

// DecodeHighlightArgs validates a tool call against the highlight tool
// schemas. The second return is false when the name is not a highlight tool.
// Objects with missing or malformed geometry are skipped without failing the
// batch; a highlight call may therefore decode to zero objects.
func DecodeHighlightArgs(name string, args json.RawMessage) ([]HighlightObject, bool) {
	switch name {
	case ToolHighlightObjects:
		var batch struct {
			Objects []HighlightObject `json:"objects"`
		}
		if err := json.Unmarshal(args, &batch); err != nil {
			return nil, true
		}
		return validHighlightObjects(batch.Objects), true
	case ToolHighlightObject:
		var single HighlightObject
		if err := json.Unmarshal(args, &single); err != nil {
			return nil, true
		}
		return validHighlightObjects([]HighlightObject{single}), true
	default:
		return nil, false
	}
}

func validHighlightObjects(objects []HighlightObject) []HighlightObject {
	out := make([]HighlightObject, 0, len(objects))
	for _, obj := range objects {
		if len(obj.Box2D) != 4 {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// AckResponses builds the mandatory acknowledgment for a tool-call batch,
// echoing every call identifier with result "ok". The remote stalls further
// tool calls until each invocation is acknowledged, so every call is echoed
// regardless of whether it matched a known tool or decoded cleanly.
func AckResponses(calls []FunctionCall) ToolResponseMessage {
	responses := make([]FunctionResponse, 0, len(calls))
	for _, call := range calls {
		responses = append(responses, FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: map[string]any{"result": "ok"},
		})
	}
	return ToolResponseMessage{ToolResponse: ToolResponse{FunctionResponses: responses}}
}

// HighlightToolDeclarations returns the tool schema registered at setup.
// Batched mode declares highlight_objects with an object list; otherwise the
// single highest-confidence box variant highlight_object is declared.
func HighlightToolDeclarations(batched bool) []Tool {
	boxSchema := &Schema{
		Type:        "object",
		Description: "A detected object with its bounding box.",
		Properties: map[string]*Schema{
			"label": {Type: "string", Description: "Short name of the detected object."},
			"box_2d": {
				Type:        "array",
				Description: "Bounding box as [ymin, xmin, ymax, xmax] in 0-1000 coordinates.",
				Items:       &Schema{Type: "integer"},
			},
		},
		Required: []string{"label", "box_2d"},
	}

	if batched {
		return []Tool{{
			FunctionDeclarations: []FunctionDeclaration{{
				Name:        ToolHighlightObjects,
				Description: "Highlight every detected object in the camera view with a labeled box.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"objects": {Type: "array", Items: boxSchema},
					},
					Required: []string{"objects"},
				},
			}},
		}}
	}
	return []Tool{{
		FunctionDeclarations: []FunctionDeclaration{{
			Name:        ToolHighlightObject,
			Description: "Highlight the most prominent detected object in the camera view with a labeled box.",
			Parameters:  boxSchema,
		}},
	}}
}
