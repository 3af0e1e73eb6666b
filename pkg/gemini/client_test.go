package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-go/spotlight/pkg/core"
	"github.com/spotlight-go/spotlight/pkg/live/protocol"
)

func newWebsocketTestServer(t *testing.T, handler func(conn *websocket.Conn)) (string, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return wsURL, server.Close
}

func ackSetup(t *testing.T, conn *websocket.Conn) protocol.SetupMessage {
	t.Helper()
	var setup protocol.SetupMessage
	require.NoError(t, conn.ReadJSON(&setup))
	require.NoError(t, conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}}))
	return setup
}

func testSetup() protocol.Setup {
	return protocol.Setup{
		Model:            "models/gemini-2.0-flash-live-001",
		GenerationConfig: &protocol.GenerationConfig{ResponseModalities: []string{protocol.ModalityAudio}},
	}
}

func TestConnectMissingKey(t *testing.T) {
	t.Parallel()

	client := &Client{}
	_, err := client.Connect(context.Background(), testSetup())
	assert.True(t, core.IsCredentialError(err))
}

func TestConnectMissingModel(t *testing.T) {
	t.Parallel()

	client := &Client{APIKey: "test-key"}
	_, err := client.Connect(context.Background(), protocol.Setup{})
	assert.Error(t, err)
}

func TestConnectHandshake(t *testing.T) {
	t.Parallel()

	received := make(chan protocol.SetupMessage, 1)
	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		received <- ackSetup(t, conn)
		// Keep the connection open until the client closes it.
		_, _, _ = conn.ReadMessage()
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	session, err := client.Connect(context.Background(), testSetup())
	require.NoError(t, err)
	defer session.Close()

	setup := <-received
	assert.Equal(t, "models/gemini-2.0-flash-live-001", setup.Setup.Model)
	require.NotNil(t, setup.Setup.GenerationConfig)
	assert.Equal(t, []string{protocol.ModalityAudio}, setup.Setup.GenerationConfig.ResponseModalities)
}

func TestConnectRejectsWrongFirstFrame(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var setup json.RawMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(map[string]any{"serverContent": map[string]any{"turnComplete": true}})
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	_, err := client.Connect(context.Background(), testSetup())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acknowledge")
}

func TestSessionReceivesOrderedMessages(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var setup json.RawMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})
		_ = conn.WriteJSON(map[string]any{"serverContent": map[string]any{"inputTranscription": map[string]any{"text": "Hel"}}})
		_ = conn.WriteJSON(map[string]any{"serverContent": map[string]any{"inputTranscription": map[string]any{"text": "lo"}}})
		_ = conn.WriteJSON(map[string]any{"toolCall": map[string]any{"functionCalls": []map[string]any{{"id": "c1", "name": "highlight_objects"}}}})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	session, err := client.Connect(context.Background(), testSetup())
	require.NoError(t, err)
	defer session.Close()

	var got []*protocol.ServerMessage
	for msg := range session.Messages() {
		got = append(got, msg)
	}

	require.Len(t, got, 3)
	assert.Equal(t, "Hel", got[0].ServerContent.InputTranscription.Text)
	assert.Equal(t, "lo", got[1].ServerContent.InputTranscription.Text)
	require.NotNil(t, got[2].ToolCall)
	assert.NoError(t, session.Err())
}

func TestSessionSkipsMalformedFrames(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var setup json.RawMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		_ = conn.WriteJSON(map[string]any{"serverContent": map[string]any{"turnComplete": true}})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	session, err := client.Connect(context.Background(), testSetup())
	require.NoError(t, err)
	defer session.Close()

	var got []*protocol.ServerMessage
	for msg := range session.Messages() {
		got = append(got, msg)
	}

	require.Len(t, got, 1)
	assert.True(t, got[0].ServerContent.TurnComplete)
	assert.NoError(t, session.Err())
}

func TestSessionSendRealtimeInput(t *testing.T) {
	t.Parallel()

	frames := make(chan json.RawMessage, 4)
	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var setup json.RawMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})
		for {
			var frame json.RawMessage
			if err := conn.ReadJSON(&frame); err != nil {
				close(frames)
				return
			}
			frames <- frame
		}
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	session, err := client.Connect(context.Background(), testSetup())
	require.NoError(t, err)

	require.NoError(t, session.SendRealtimeInput(protocol.Blob{MimeType: protocol.MimeAudioPCM16k, Data: "AAAA"}))
	require.NoError(t, session.SendToolResponse(protocol.AckResponses([]protocol.FunctionCall{{ID: "c1", Name: "highlight_objects"}})))

	var media protocol.RealtimeInputMessage
	require.NoError(t, json.Unmarshal(<-frames, &media))
	require.Len(t, media.RealtimeInput.MediaChunks, 1)
	assert.Equal(t, protocol.MimeAudioPCM16k, media.RealtimeInput.MediaChunks[0].MimeType)

	var ack protocol.ToolResponseMessage
	require.NoError(t, json.Unmarshal(<-frames, &ack))
	require.Len(t, ack.ToolResponse.FunctionResponses, 1)
	assert.Equal(t, "c1", ack.ToolResponse.FunctionResponses[0].ID)

	require.NoError(t, session.Close())
}

func TestSessionCloseIdempotent(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newWebsocketTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var setup json.RawMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})
		_, _, _ = conn.ReadMessage()
	})
	defer closeServer()

	client := &Client{APIKey: "test-key", BaseURL: serverURL}
	session, err := client.Connect(context.Background(), testSetup())
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	assert.Error(t, session.SendRealtimeInput(protocol.Blob{Data: "AAAA"}))
}
