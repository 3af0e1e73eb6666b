// Package metrics exposes Prometheus instrumentation for live sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "spotlight"
	subsystem = "live"
)

// Metrics holds the session collectors. A nil *Metrics is a valid no-op
// recorder so instrumentation stays optional.
type Metrics struct {
	sessionsStarted   prometheus.Counter
	sessionErrors     prometheus.Counter
	audioChunksSent   prometheus.Counter
	audioChunksPlayed prometheus.Counter
	framesSent        prometheus.Counter
	toolCallBatches   prometheus.Counter
	transcriptDeltas  prometheus.Counter
	activeBoxes       prometheus.Gauge
	playbackChunkSecs prometheus.Histogram
}

// New registers the session collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_started_total",
			Help: "Live session attempts that reached the connect phase.",
		}),
		sessionErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "session_errors_total",
			Help: "Live session attempts that ended in an error state.",
		}),
		audioChunksSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "audio_chunks_sent_total",
			Help: "Microphone PCM blocks streamed to the remote.",
		}),
		audioChunksPlayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "audio_chunks_played_total",
			Help: "Inbound speech chunks scheduled for playback.",
		}),
		framesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "frames_sent_total",
			Help: "Camera frames sampled and streamed to the remote.",
		}),
		toolCallBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "tool_call_batches_total",
			Help: "Tool-call batches received and acknowledged.",
		}),
		transcriptDeltas: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "transcript_deltas_total",
			Help: "Incremental transcription updates applied.",
		}),
		activeBoxes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "active_boxes",
			Help: "Highlight boxes currently on screen.",
		}),
		playbackChunkSecs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "playback_chunk_seconds",
			Help:    "Duration of inbound speech chunks scheduled for playback.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 8),
		}),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionError() {
	if m == nil {
		return
	}
	m.sessionErrors.Inc()
}

func (m *Metrics) AudioChunkSent() {
	if m == nil {
		return
	}
	m.audioChunksSent.Inc()
}

func (m *Metrics) AudioChunkPlayed(d time.Duration) {
	if m == nil {
		return
	}
	m.audioChunksPlayed.Inc()
	m.playbackChunkSecs.Observe(d.Seconds())
}

func (m *Metrics) FrameSent() {
	if m == nil {
		return
	}
	m.framesSent.Inc()
}

func (m *Metrics) ToolCallBatch() {
	if m == nil {
		return
	}
	m.toolCallBatches.Inc()
}

func (m *Metrics) TranscriptDelta() {
	if m == nil {
		return
	}
	m.transcriptDeltas.Inc()
}

func (m *Metrics) SetActiveBoxes(n int) {
	if m == nil {
		return
	}
	m.activeBoxes.Set(float64(n))
}
