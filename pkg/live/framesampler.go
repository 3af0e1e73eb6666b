package live

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/spotlight-go/spotlight/pkg/audio"
)

// FrameSource provides the most recent camera frame. ok is false when no
// frame is available yet, e.g. before the device warms up.
type FrameSource interface {
	Frame() (img image.Image, ok bool)
}

// FrameSampler grabs the current camera frame on demand, compresses it to
// JPEG, and hands the base64 payload to emit. Ticks with no frame available
// are skipped silently; the conversation stays audio-only until frames
// arrive.
type FrameSampler struct {
	source  FrameSource
	quality int
	emit    func(b64 string)
}

// NewFrameSampler creates a sampler compressing at the given JPEG quality.
func NewFrameSampler(source FrameSource, quality int, emit func(b64 string)) *FrameSampler {
	return &FrameSampler{source: source, quality: quality, emit: emit}
}

// SampleOnce captures and emits a single frame. Returns false when the
// source had no frame or encoding failed; neither is fatal.
func (s *FrameSampler) SampleOnce() bool {
	img, ok := s.source.Frame()
	if !ok || img == nil {
		return false
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return false
	}
	s.emit(audio.EncodeBase64(buf.Bytes()))
	return true
}
