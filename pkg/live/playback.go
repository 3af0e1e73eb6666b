package live

import (
	"sync"
	"time"

	"github.com/spotlight-go/spotlight/pkg/audio"
)

// OutputContext is the playback backend a scheduler drives. Implementations
// wrap a real audio device; tests substitute a fake with a controllable
// clock.
type OutputContext interface {
	// Now is the backend's monotonic playback clock.
	Now() time.Duration

	// Suspended reports whether the backend cannot emit sound yet, e.g.
	// before a user gesture unlocks the device.
	Suspended() bool

	// ScheduleAt queues a buffer to start playing at the given clock time.
	ScheduleAt(buf *audio.Buffer, at time.Duration) error
}

// PlaybackScheduler queues inbound speech chunks back to back on an output
// clock. A cursor tracks the end of the last scheduled chunk; each new chunk
// starts at the cursor or at the current clock time, whichever is later, so
// chunks never overlap and never schedule into the past.
type PlaybackScheduler struct {
	out        OutputContext
	sampleRate int
	channels   int

	mu     sync.Mutex
	cursor time.Duration
}

// NewPlaybackScheduler creates a scheduler emitting PCM at the given rate
// and channel count.
func NewPlaybackScheduler(out OutputContext, sampleRate, channels int) *PlaybackScheduler {
	return &PlaybackScheduler{out: out, sampleRate: sampleRate, channels: channels}
}

// Enqueue schedules one raw PCM16 chunk. Chunks arriving while the backend
// is suspended are dropped rather than queued, so stale speech is never
// played after the device resumes. Returns the scheduled start and duration,
// and whether the chunk was scheduled at all.
func (p *PlaybackScheduler) Enqueue(pcm []byte) (start, dur time.Duration, scheduled bool, err error) {
	if p.out.Suspended() {
		return 0, 0, false, nil
	}
	buf, err := audio.DecodePCM16(pcm, p.sampleRate, p.channels)
	if err != nil {
		return 0, 0, false, err
	}
	dur = buf.Duration()

	p.mu.Lock()
	defer p.mu.Unlock()

	start = p.cursor
	if now := p.out.Now(); now > start {
		start = now
	}
	if err := p.out.ScheduleAt(buf, start); err != nil {
		return 0, 0, false, err
	}
	p.cursor = start + dur
	return start, dur, true, nil
}

// Reset rewinds the cursor for a new session.
func (p *PlaybackScheduler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = 0
}

// Cursor returns the end time of the last scheduled chunk.
func (p *PlaybackScheduler) Cursor() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
