package audio

import (
	"fmt"
	"time"
)

// Buffer holds decoded PCM audio ready for playback scheduling.
type Buffer struct {
	// Samples are interleaved 16-bit signed samples.
	Samples []int16

	// SampleRate in Hz.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int
}

// DecodePCM16 decodes a little-endian 16-bit PCM byte stream into a Buffer
// at the target sample rate and channel count.
func DecodePCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm stream has odd length %d", len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Bytes re-encodes the buffer as little-endian 16-bit PCM.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// BytesPerSecond returns the byte rate for the given PCM16 shape.
func BytesPerSecond(sampleRate, channels int) int {
	return sampleRate * channels * 2
}

// DurationOfBytes returns the playback duration of a PCM16 byte count.
func DurationOfBytes(n, sampleRate, channels int) time.Duration {
	bps := BytesPerSecond(sampleRate, channels)
	if bps <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
