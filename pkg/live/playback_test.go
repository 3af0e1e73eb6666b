package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-go/spotlight/pkg/audio"
)

type scheduledBuf struct {
	buf *audio.Buffer
	at  time.Duration
}

// fakeOutput records scheduled buffers against a test-controlled clock.
type fakeOutput struct {
	mu        sync.Mutex
	now       time.Duration
	suspended bool
	scheduled []scheduledBuf
}

func (f *fakeOutput) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeOutput) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended
}

func (f *fakeOutput) ScheduleAt(buf *audio.Buffer, at time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduledBuf{buf: buf, at: at})
	return nil
}

func (f *fakeOutput) setNow(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = d
}

func (f *fakeOutput) setSuspended(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended = v
}

// pcmChunk builds n samples of silence as raw little-endian PCM16.
func pcmChunk(n int) []byte {
	return make([]byte, 2*n)
}

func TestPlaybackChunksAreGapless(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlaybackScheduler(out, 24000, 1)

	// Three chunks of 2400 samples = 100ms each, arriving faster than
	// real time.
	for i := 0; i < 3; i++ {
		start, dur, scheduled, err := p.Enqueue(pcmChunk(2400))
		require.NoError(t, err)
		require.True(t, scheduled)
		assert.Equal(t, time.Duration(i)*100*time.Millisecond, start)
		assert.Equal(t, 100*time.Millisecond, dur)
	}

	require.Len(t, out.scheduled, 3)
	for i := 1; i < len(out.scheduled); i++ {
		prev := out.scheduled[i-1]
		prevEnd := prev.at + prev.buf.Duration()
		assert.Equal(t, prevEnd, out.scheduled[i].at)
	}
	assert.Equal(t, 300*time.Millisecond, p.Cursor())
}

func TestPlaybackLateChunkStartsNow(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlaybackScheduler(out, 24000, 1)

	_, _, _, err := p.Enqueue(pcmChunk(2400))
	require.NoError(t, err)

	// The clock runs past the cursor before the next chunk arrives.
	out.setNow(250 * time.Millisecond)

	start, _, scheduled, err := p.Enqueue(pcmChunk(2400))
	require.NoError(t, err)
	require.True(t, scheduled)
	assert.Equal(t, 250*time.Millisecond, start)
	assert.Equal(t, 350*time.Millisecond, p.Cursor())
}

func TestPlaybackSuspendedChunksDropped(t *testing.T) {
	out := &fakeOutput{suspended: true}
	p := NewPlaybackScheduler(out, 24000, 1)

	_, _, scheduled, err := p.Enqueue(pcmChunk(2400))
	require.NoError(t, err)
	assert.False(t, scheduled)
	assert.Empty(t, out.scheduled)

	// Chunks dropped while suspended are not played retroactively after
	// resume; only new chunks are.
	out.setSuspended(false)
	start, _, scheduled, err := p.Enqueue(pcmChunk(2400))
	require.NoError(t, err)
	require.True(t, scheduled)
	assert.Equal(t, time.Duration(0), start)
	assert.Len(t, out.scheduled, 1)
}

func TestPlaybackOddLengthChunkRejected(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlaybackScheduler(out, 24000, 1)

	_, _, scheduled, err := p.Enqueue(make([]byte, 3))
	assert.Error(t, err)
	assert.False(t, scheduled)
	assert.Empty(t, out.scheduled)
}

func TestPlaybackReset(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlaybackScheduler(out, 24000, 1)

	_, _, _, err := p.Enqueue(pcmChunk(2400))
	require.NoError(t, err)
	require.NotZero(t, p.Cursor())

	p.Reset()
	assert.Zero(t, p.Cursor())
}
