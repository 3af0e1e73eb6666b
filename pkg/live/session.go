package live

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spotlight-go/spotlight/pkg/audio"
	"github.com/spotlight-go/spotlight/pkg/core"
	"github.com/spotlight-go/spotlight/pkg/live/protocol"
	"github.com/spotlight-go/spotlight/pkg/metrics"
)

// RemoteSession is the duplex transport a session drives. *gemini.Session
// satisfies it; tests substitute an in-memory fake.
type RemoteSession interface {
	// Messages yields inbound frames strictly in the order received. The
	// channel closes when the transport ends; Err reports how.
	Messages() <-chan *protocol.ServerMessage

	SendRealtimeInput(chunks ...protocol.Blob) error
	SendToolResponse(msg protocol.ToolResponseMessage) error

	// Close is idempotent.
	Close() error

	// Err blocks until the transport ends. Nil means a normal remote close.
	Err() error
}

// Connector opens remote sessions. One Connect call per session attempt.
type Connector interface {
	Connect(ctx context.Context, apiKey string, setup protocol.Setup) (RemoteSession, error)
}

// CredentialStore reads and revokes the stored API credential.
type CredentialStore interface {
	Read() (string, error)
	Clear() error
}

// SessionOptions wires a session's collaborators. Connector and Credentials
// are required; Mic and Camera must be present before Start can succeed.
type SessionOptions struct {
	Config      SessionConfig
	Connector   Connector
	Credentials CredentialStore

	Mic    SampleSource
	Camera FrameSource
	Output OutputContext

	// Clock drives the overlay expiry timer. Defaults to real time.
	Clock Clock

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session owns the full lifecycle of one live conversation: connect, stream
// mic audio and camera frames out, and fold inbound speech, transcripts, and
// highlight tool calls into observable state. At most one attempt is active
// at a time; a monotonically increasing generation counter fences every
// callback so work belonging to a stopped attempt can never mutate a later
// one.
type Session struct {
	cfg       SessionConfig
	connector Connector
	creds     CredentialStore
	mic       SampleSource
	camera    FrameSource
	logger    *slog.Logger
	metrics   *metrics.Metrics

	overlay  *OverlayManager
	playback *PlaybackScheduler

	events chan Event

	mu          sync.Mutex
	state       ConnectionState
	gen         uint64
	resources   *resourceSet
	transcript  Transcript
	subscribers []func(Snapshot)
	credCleared bool
}

// NewSession creates a session. It does not touch the network; call Start.
func NewSession(opts SessionOptions) *Session {
	cfg := opts.Config
	cfg.applyDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:       cfg,
		connector: opts.Connector,
		creds:     opts.Credentials,
		mic:       opts.Mic,
		camera:    opts.Camera,
		logger:    logger,
		metrics:   opts.Metrics,
		events:    make(chan Event, cfg.EventBuffer),
	}
	s.overlay = NewOverlayManager(cfg.BoxExpiry, opts.Clock, s.onBoxesChanged)
	s.playback = NewPlaybackScheduler(opts.Output, cfg.OutputSampleRate, cfg.Channels)
	return s
}

// Events yields session events. The channel is buffered; events are dropped
// rather than blocking the session when the consumer falls behind.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the observable state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	state := s.state
	entries := s.transcript.Entries()
	s.mu.Unlock()
	return Snapshot{State: state, Transcript: entries, Boxes: s.overlay.Boxes()}
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// observable change. Callbacks run outside the session lock.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Start opens a live session. A no-op while one is connecting or connected.
// Device and credential preflight failures return before any connection
// attempt, leaving the state unchanged.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	if s.mic == nil || s.camera == nil {
		s.mu.Unlock()
		err := core.NewPermissionError("microphone and camera access are required")
		s.emit(&NoticeEvent{Message: err.Message})
		return err
	}
	s.mu.Unlock()

	key, err := s.creds.Read()
	if err != nil {
		return core.NewAuthenticationError("read credential: " + err.Error())
	}
	if strings.TrimSpace(key) == "" {
		return core.NewAuthenticationError("no API key configured")
	}

	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.credCleared = false
	s.transcript.Reset()
	s.resources = &resourceSet{}
	prev := s.state
	s.state = StateConnecting
	s.mu.Unlock()

	s.overlay.Clear()
	s.playback.Reset()
	s.emit(&StateChangedEvent{From: prev, To: StateConnecting})
	s.notifySubscribers()
	s.metrics.SessionStarted()
	s.logger.Info("session connecting", "model", s.cfg.Model)

	remote, err := s.connector.Connect(ctx, key, s.cfg.setup())
	if err != nil {
		s.failAttempt(gen, err)
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		// Stopped while connecting; the attempt is already torn down.
		s.mu.Unlock()
		_ = remote.Close()
		return nil
	}
	res := s.resources
	prev = s.state
	s.state = StateConnected
	s.mu.Unlock()

	res.add(func() { _ = remote.Close() })

	stop := make(chan struct{})
	var stopOnce sync.Once
	res.add(func() { stopOnce.Do(func() { close(stop) }) })

	s.startCapture(gen, remote, stop)
	s.startFrameTicker(gen, remote, stop, res)
	go s.dispatch(gen, remote)

	s.emit(&StateChangedEvent{From: prev, To: StateConnected})
	s.notifySubscribers()
	s.logger.Info("session connected")
	return nil
}

// Stop tears the active attempt down and returns to idle. Idempotent: a
// second call observes idle state and does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle && s.resources == nil {
		s.mu.Unlock()
		return
	}
	s.gen++
	res := s.resources
	s.resources = nil
	prev := s.state
	s.state = StateIdle
	s.mu.Unlock()

	if res != nil {
		res.releaseAll()
	}
	s.overlay.Clear()
	s.playback.Reset()
	s.metrics.SetActiveBoxes(0)

	if prev != StateIdle {
		s.emit(&StateChangedEvent{From: prev, To: StateIdle})
	}
	s.notifySubscribers()
	s.logger.Info("session stopped")
}

// alive reports whether the attempt identified by gen is still the live one.
// Every cross-goroutine callback checks this before touching session state.
func (s *Session) alive(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && (s.state == StateConnecting || s.state == StateConnected)
}

func (s *Session) startCapture(gen uint64, remote RemoteSession, stop <-chan struct{}) {
	mime := fmt.Sprintf("audio/pcm;rate=%d", s.cfg.InputSampleRate)
	pipeline := NewCapturePipeline(s.mic, s.cfg.CaptureBlockSize, func(pcm []byte) {
		if !s.alive(gen) {
			return
		}
		blob := protocol.Blob{MimeType: mime, Data: audio.EncodeBase64(pcm)}
		if err := remote.SendRealtimeInput(blob); err != nil {
			s.logger.Debug("drop mic block", "error", err)
			return
		}
		s.metrics.AudioChunkSent()
	})

	go func() {
		if err := pipeline.Run(stop); err != nil && s.alive(gen) {
			s.logger.Warn("microphone stream ended", "error", err)
			s.emit(&NoticeEvent{Message: "microphone stream ended: " + err.Error()})
		}
	}()
}

func (s *Session) startFrameTicker(gen uint64, remote RemoteSession, stop <-chan struct{}, res *resourceSet) {
	sampler := NewFrameSampler(s.camera, s.cfg.JPEGQuality, func(b64 string) {
		if !s.alive(gen) {
			return
		}
		blob := protocol.Blob{MimeType: protocol.MimeImageJPEG, Data: b64}
		if err := remote.SendRealtimeInput(blob); err != nil {
			s.logger.Debug("drop frame", "error", err)
			return
		}
		s.metrics.FrameSent()
	})

	ticker := time.NewTicker(s.cfg.FrameInterval)
	res.add(ticker.Stop)

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sampler.SampleOnce()
			}
		}
	}()
}

// dispatch is the single consumer of inbound frames. Processing one frame at
// a time in arrival order is what keeps transcripts, playback scheduling, and
// tool acknowledgments consistent.
func (s *Session) dispatch(gen uint64, remote RemoteSession) {
	for msg := range remote.Messages() {
		if !s.alive(gen) {
			return
		}
		s.handleMessage(gen, remote, msg)
	}

	if !s.alive(gen) {
		return
	}
	if err := remote.Err(); err != nil {
		s.failAttempt(gen, err)
		return
	}
	s.closeAttempt(gen, "remote ended the session")
}

func (s *Session) handleMessage(gen uint64, remote RemoteSession, msg *protocol.ServerMessage) {
	switch {
	case msg.ServerContent != nil:
		s.handleServerContent(msg.ServerContent)
	case msg.ToolCall != nil:
		s.handleToolCall(remote, msg.ToolCall)
	case msg.GoAway != nil:
		s.logger.Info("remote announced shutdown", "time_left", msg.GoAway.TimeLeft)
		s.emit(&NoticeEvent{Message: "session ending soon"})
	default:
		// Unknown frames are skipped per-item.
	}
}

func (s *Session) handleServerContent(content *protocol.ServerContent) {
	if content.InputTranscription != nil {
		s.addTranscriptDelta(SpeakerUser, content.InputTranscription.Text)
	}
	if content.OutputTranscription != nil {
		s.addTranscriptDelta(SpeakerModel, content.OutputTranscription.Text)
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MimeType, "audio/pcm") {
				continue
			}
			s.enqueueSpeech(part.InlineData.Data)
		}
	}

	if content.TurnComplete {
		s.mu.Lock()
		s.transcript.FinalizeAll()
		s.mu.Unlock()
		s.emit(&TurnCompleteEvent{})
		s.notifySubscribers()
	}
}

func (s *Session) addTranscriptDelta(source Speaker, delta string) {
	if delta == "" {
		return
	}
	s.mu.Lock()
	s.transcript.AddDelta(source, delta)
	s.mu.Unlock()
	s.metrics.TranscriptDelta()
	s.emit(&TranscriptDeltaEvent{Source: source, Delta: delta})
	s.notifySubscribers()
}

func (s *Session) enqueueSpeech(b64 string) {
	pcm, err := audio.DecodeBase64(b64)
	if err != nil {
		s.logger.Debug("skip undecodable audio part", "error", err)
		return
	}
	start, dur, scheduled, err := s.playback.Enqueue(pcm)
	if err != nil {
		s.logger.Debug("skip unplayable audio part", "error", err)
		return
	}
	if !scheduled {
		return
	}
	s.metrics.AudioChunkPlayed(dur)
	s.emit(&AudioScheduledEvent{StartAt: start, Duration: dur})
}

// handleToolCall applies highlight batches and acknowledges every call in
// the batch, including calls for unknown tools or with malformed arguments.
// The remote stalls further tool calls until each one is answered.
func (s *Session) handleToolCall(remote RemoteSession, call *protocol.ToolCall) {
	for _, fc := range call.FunctionCalls {
		objects, ok := protocol.DecodeHighlightArgs(fc.Name, fc.Args)
		if !ok {
			s.logger.Debug("unknown tool call", "name", fc.Name)
			continue
		}
		s.overlay.Apply(objects)
	}

	if err := remote.SendToolResponse(protocol.AckResponses(call.FunctionCalls)); err != nil {
		s.logger.Debug("tool acknowledgment failed", "error", err)
	}
	s.metrics.ToolCallBatch()
}

// onBoxesChanged runs on overlay Apply and expiry. Expiry arrives on a timer
// goroutine; Stop cancels the timer before returning, so a cleared attempt
// never notifies.
func (s *Session) onBoxesChanged(boxes []BoundingBox) {
	s.metrics.SetActiveBoxes(len(boxes))
	if len(boxes) == 0 {
		s.emit(&BoxesClearedEvent{})
	} else {
		s.emit(&BoxesUpdatedEvent{Boxes: boxes})
	}
	s.notifySubscribers()
}

// failAttempt moves the attempt identified by gen to the error state and
// tears its resources down. A credential rejection additionally clears the
// stored key, exactly once per attempt.
func (s *Session) failAttempt(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	res := s.resources
	s.resources = nil
	prev := s.state
	s.state = StateError
	clearCred := core.IsCredentialError(err) && !s.credCleared
	if clearCred {
		s.credCleared = true
	}
	s.mu.Unlock()

	if res != nil {
		res.releaseAll()
	}
	s.overlay.Clear()
	s.metrics.SetActiveBoxes(0)
	s.metrics.SessionError()

	if clearCred {
		if cerr := s.creds.Clear(); cerr != nil {
			s.logger.Warn("clear rejected credential", "error", cerr)
		}
		s.emit(&NoticeEvent{Message: "stored API key was rejected and has been cleared; set a new key and restart"})
	}

	s.logger.Error("session failed", "error", err)
	s.emit(&ErrorEvent{Err: err})
	s.emit(&StateChangedEvent{From: prev, To: StateError})
	s.notifySubscribers()
}

// closeAttempt handles a clean remote-initiated end of session.
func (s *Session) closeAttempt(gen uint64, reason string) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	res := s.resources
	s.resources = nil
	prev := s.state
	s.state = StateClosed
	s.mu.Unlock()

	if res != nil {
		res.releaseAll()
	}
	s.overlay.Clear()
	s.metrics.SetActiveBoxes(0)

	s.logger.Info("session closed by remote", "reason", reason)
	s.emit(&ClosedEvent{Reason: reason})
	s.emit(&StateChangedEvent{From: prev, To: StateClosed})
	s.notifySubscribers()
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Consumers that fall behind lose events rather than stalling the
		// session.
	}
}

func (s *Session) notifySubscribers() {
	s.mu.Lock()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}
