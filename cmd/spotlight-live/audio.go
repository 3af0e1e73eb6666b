package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/spotlight-go/spotlight/pkg/audio"
)

// micSource captures float32 microphone samples through malgo.
type micSource struct {
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []float32
	closed bool
}

func newMicSource(ctx malgo.Context, sampleRate, channels int) (*micSource, error) {
	m := &micSource{
		buf: make([]float32, 0, sampleRate),
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			samples := make([]float32, len(pInputSamples)/4)
			for i := range samples {
				bits := binary.LittleEndian.Uint32(pInputSamples[i*4:])
				samples[i] = math.Float32frombits(bits)
			}
			m.mu.Lock()
			m.buf = append(m.buf, samples...)
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	return m, nil
}

// ReadSamples blocks until samples are available or the device closes.
func (m *micSource) ReadSamples(dst []float32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, fmt.Errorf("microphone closed")
	}
	n := copy(dst, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

func (m *micSource) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
	}
}

// speakerOutput plays scheduled buffers through oto. Playback is suspended
// until Resume; chunks arriving before that are dropped by the scheduler
// rather than queued.
type speakerOutput struct {
	ctx *oto.Context

	mu        sync.Mutex
	started   time.Time
	suspended bool
	timers    []*time.Timer
}

func newSpeakerOutput(sampleRate, channels int) (*speakerOutput, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   sampleRate / 10 * 2, // ~100ms for low latency
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	return &speakerOutput{
		ctx:       ctx,
		started:   time.Now(),
		suspended: true,
	}, nil
}

func (s *speakerOutput) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.started)
}

func (s *speakerOutput) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Resume unlocks playback, the desktop analog of the first user gesture.
func (s *speakerOutput) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
}

// ScheduleAt starts a one-shot player when the output clock reaches at.
// The scheduler's cursor guarantees buffers never overlap.
func (s *speakerOutput) ScheduleAt(buf *audio.Buffer, at time.Duration) error {
	pcm := buf.Bytes()

	s.mu.Lock()
	defer s.mu.Unlock()
	delay := at - time.Since(s.started)
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, func() {
		player := s.ctx.NewPlayer(bytes.NewReader(pcm))
		player.Play()
	})
	s.timers = append(s.timers, timer)
	return nil
}

func (s *speakerOutput) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.suspended = true
}
