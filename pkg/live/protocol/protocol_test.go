package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerMessageSetupComplete(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"setupComplete":{}}`))
	require.NoError(t, err)

	assert.NotNil(t, msg.SetupComplete)
	assert.False(t, msg.IsUnknown())
}

func TestDecodeServerMessageServerContent(t *testing.T) {
	raw := `{
		"serverContent": {
			"modelTurn": {"parts": [{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "AAAA"}}]},
			"inputTranscription": {"text": "Hel"},
			"turnComplete": true
		}
	}`

	msg, err := DecodeServerMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.ServerContent)

	sc := msg.ServerContent
	assert.True(t, sc.TurnComplete)
	require.NotNil(t, sc.InputTranscription)
	assert.Equal(t, "Hel", sc.InputTranscription.Text)
	require.Len(t, sc.ModelTurn.Parts, 1)
	require.NotNil(t, sc.ModelTurn.Parts[0].InlineData)
	assert.Equal(t, "AAAA", sc.ModelTurn.Parts[0].InlineData.Data)
}

func TestDecodeServerMessageToolCall(t *testing.T) {
	raw := `{"toolCall":{"functionCalls":[{"id":"call-1","name":"highlight_objects","args":{"objects":[]}}]}}`

	msg, err := DecodeServerMessage([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, msg.ToolCall)
	require.Len(t, msg.ToolCall.FunctionCalls, 1)
	assert.Equal(t, "call-1", msg.ToolCall.FunctionCalls[0].ID)
	assert.Equal(t, ToolHighlightObjects, msg.ToolCall.FunctionCalls[0].Name)
}

func TestDecodeServerMessageUnknown(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"usageMetadata":{"totalTokenCount":12}}`))
	require.NoError(t, err)
	assert.True(t, msg.IsUnknown())
}

func TestDecodeServerMessageInvalidJSON(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{`))
	assert.Error(t, err)
}

func TestDecodeHighlightArgsBatch(t *testing.T) {
	args := json.RawMessage(`{"objects":[
		{"label":"cup","box_2d":[100,100,300,300]},
		{"label":"book","box_2d":[0,0,500,1000]},
		{"label":"missing box"},
		{"label":"short","box_2d":[1,2,3]}
	]}`)

	objects, ok := DecodeHighlightArgs(ToolHighlightObjects, args)
	require.True(t, ok)
	require.Len(t, objects, 2)
	assert.Equal(t, "cup", objects[0].Label)
	assert.Equal(t, []int{100, 100, 300, 300}, objects[0].Box2D)
	assert.Equal(t, "book", objects[1].Label)
}

func TestDecodeHighlightArgsSingle(t *testing.T) {
	objects, ok := DecodeHighlightArgs(ToolHighlightObject, json.RawMessage(`{"label":"cup","box_2d":[1,2,3,4]}`))
	require.True(t, ok)
	require.Len(t, objects, 1)
	assert.Equal(t, "cup", objects[0].Label)
}

func TestDecodeHighlightArgsMalformed(t *testing.T) {
	objects, ok := DecodeHighlightArgs(ToolHighlightObjects, json.RawMessage(`"not an object"`))
	assert.True(t, ok)
	assert.Empty(t, objects)
}

func TestDecodeHighlightArgsUnknownTool(t *testing.T) {
	_, ok := DecodeHighlightArgs("change_background", json.RawMessage(`{}`))
	assert.False(t, ok)
}

func TestAckResponses(t *testing.T) {
	calls := []FunctionCall{
		{ID: "a", Name: ToolHighlightObjects},
		{ID: "b", Name: "unknown_tool"},
	}

	msg := AckResponses(calls)
	require.Len(t, msg.ToolResponse.FunctionResponses, 2)
	for i, resp := range msg.ToolResponse.FunctionResponses {
		assert.Equal(t, calls[i].ID, resp.ID)
		assert.Equal(t, calls[i].Name, resp.Name)
		assert.Equal(t, map[string]any{"result": "ok"}, resp.Response)
	}
}

func TestHighlightToolDeclarations(t *testing.T) {
	batched := HighlightToolDeclarations(true)
	require.Len(t, batched, 1)
	require.Len(t, batched[0].FunctionDeclarations, 1)
	assert.Equal(t, ToolHighlightObjects, batched[0].FunctionDeclarations[0].Name)

	single := HighlightToolDeclarations(false)
	require.Len(t, single, 1)
	assert.Equal(t, ToolHighlightObject, single[0].FunctionDeclarations[0].Name)
}

func TestRealtimeInputMessageWireShape(t *testing.T) {
	msg := RealtimeInputMessage{RealtimeInput: RealtimeInput{
		MediaChunks: []Blob{{MimeType: MimeAudioPCM16k, Data: "AAAA"}},
	}}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"realtimeInput":{"mediaChunks":[{"mimeType":"audio/pcm;rate=16000","data":"AAAA"}]}}`, string(raw))
}
