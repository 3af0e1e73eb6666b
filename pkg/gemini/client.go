// Package gemini implements the duplex WebSocket session against the live
// multimodal inference service. It owns dialing, the setup handshake, frame
// reads/writes, and idempotent close; higher-level session semantics live in
// pkg/live.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spotlight-go/spotlight/pkg/core"
	"github.com/spotlight-go/spotlight/pkg/live/protocol"
)

const (
	// DefaultHost is the production service host.
	DefaultHost = "generativelanguage.googleapis.com"

	bidiPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultConnectTimeout = 15 * time.Second
)

// Client dials live sessions. The zero value is not usable; APIKey is
// required.
type Client struct {
	APIKey string

	// Host overrides the service host (no scheme).
	Host string

	// BaseURL overrides the full WebSocket endpoint. Used by tests to point
	// at an in-process server.
	BaseURL string

	// Dialer overrides the WebSocket dialer.
	Dialer *websocket.Dialer
}

func (c *Client) endpoint() (string, error) {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return "", core.NewInvalidRequestError("invalid base URL")
		}
		q := u.Query()
		q.Set("key", c.APIKey)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	u := url.URL{
		Scheme:   "wss",
		Host:     host,
		Path:     bidiPath,
		RawQuery: url.Values{"key": {c.APIKey}}.Encode(),
	}
	return u.String(), nil
}

// Connect opens a duplex session: dial, send the setup declaration, and wait
// for the remote acknowledgment. The returned session is single-use.
func (c *Client) Connect(ctx context.Context, setup protocol.Setup) (*Session, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, core.NewAuthenticationError("missing API key")
	}
	if strings.TrimSpace(setup.Model) == "" {
		return nil, core.NewInvalidRequestError("setup model must not be empty")
	}

	wsURL, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			return nil, core.NewAuthenticationError(fmt.Sprintf("service rejected credential (status %d)", resp.StatusCode))
		}
		return nil, core.NewTransportError("websocket dial failed", err)
	}

	if err := conn.WriteJSON(protocol.SetupMessage{Setup: setup}); err != nil {
		_ = conn.Close()
		return nil, core.NewTransportError("send setup", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		if isCredentialClose(err) {
			return nil, core.NewAuthenticationError("service rejected credential during setup")
		}
		return nil, core.NewTransportError("read setup acknowledgment", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	first, err := protocol.DecodeServerMessage(payload)
	if err != nil {
		_ = conn.Close()
		return nil, core.NewTransportError("decode setup acknowledgment", err)
	}
	if first.SetupComplete == nil {
		_ = conn.Close()
		return nil, core.NewAPIError("remote did not acknowledge session setup")
	}

	session := &Session{
		conn:     conn,
		messages: make(chan *protocol.ServerMessage, 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go session.readLoop()
	return session, nil
}

// Session is a live duplex session handle. At most one per controller; close
// is idempotent.
type Session struct {
	conn *websocket.Conn

	messages chan *protocol.ServerMessage
	stop     chan struct{}
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Messages yields inbound frames in the order received. The channel closes
// when the session ends; Err reports how.
func (s *Session) Messages() <-chan *protocol.ServerMessage {
	if s == nil {
		return nil
	}
	return s.messages
}

// SendRealtimeInput streams media chunks to the remote. Frames are
// fire-and-forget: a failed write surfaces as an error but callers under the
// live-latency contract may drop it.
func (s *Session) SendRealtimeInput(chunks ...protocol.Blob) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.sendJSON(protocol.RealtimeInputMessage{
		RealtimeInput: protocol.RealtimeInput{MediaChunks: chunks},
	})
}

// SendToolResponse acknowledges a tool-call batch.
func (s *Session) SendToolResponse(msg protocol.ToolResponseMessage) error {
	return s.sendJSON(msg)
}

func (s *Session) sendJSON(v any) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the session. Safe to call multiple times; blocks until the
// read loop has exited.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any. Blocks until the session
// ends. A remote close with a normal code yields nil.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.messages)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if isCredentialClose(err) {
				s.setErr(core.NewAuthenticationError("service closed session: invalid credential"))
				return
			}
			s.setErr(core.NewTransportError("read frame", err))
			return
		}

		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			// Malformed frames are skipped per-item, never fatal.
			continue
		}
		select {
		case s.messages <- msg:
		case <-s.stop:
			return
		}
	}
}

// isCredentialClose reports whether a read error is the remote's
// invalid-credential close.
func isCredentialClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	if ce.Code == websocket.ClosePolicyViolation {
		return true
	}
	return strings.Contains(strings.ToLower(ce.Text), "api key")
}

// EncodeSetup is exposed for logging: it renders the setup declaration with
// the credential never included (the key travels only in the URL).
func EncodeSetup(setup protocol.Setup) string {
	raw, err := json.Marshal(protocol.SetupMessage{Setup: setup})
	if err != nil {
		return ""
	}
	return string(raw)
}
