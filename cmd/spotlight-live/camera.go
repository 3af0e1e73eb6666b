package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"
)

// fileFrameSource serves a still image as the camera view. Stands in for a
// capture device on machines without one; pointing the session at a photo of
// a scene is enough to exercise highlighting end to end.
type fileFrameSource struct {
	mu  sync.Mutex
	img image.Image
}

func newFileFrameSource(path string) (*fileFrameSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}
	return &fileFrameSource{img: img}, nil
}

func (s *fileFrameSource) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.img != nil
}

// syntheticFrameSource renders a slowly shifting gradient so frame streaming
// can be exercised without any camera or image file. The first frames report
// not-ready to mirror a warming-up device.
type syntheticFrameSource struct {
	started time.Time
	warmup  time.Duration
}

func newSyntheticFrameSource() *syntheticFrameSource {
	return &syntheticFrameSource{started: time.Now(), warmup: time.Second}
}

func (s *syntheticFrameSource) Frame() (image.Image, bool) {
	if time.Since(s.started) < s.warmup {
		return nil, false
	}
	phase := uint8(time.Since(s.started) / (50 * time.Millisecond))
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x) + phase,
				G: uint8(y),
				B: phase,
				A: 255,
			})
		}
	}
	return img, true
}
