package live

import (
	"errors"
	"io"

	"github.com/spotlight-go/spotlight/pkg/audio"
)

// SampleSource is a stream of float32 microphone samples in [-1, 1].
// ReadSamples follows the io.Reader contract: it fills up to len(dst)
// samples and returns io.EOF when the stream ends.
type SampleSource interface {
	ReadSamples(dst []float32) (int, error)
}

// CapturePipeline restructures an arbitrary-sized sample stream into fixed
// blocks of little-endian PCM16 and hands each block to emit. Tail samples
// smaller than a block are held until the next read fills the block; a
// partial block left when the source ends is discarded.
type CapturePipeline struct {
	source    SampleSource
	blockSize int
	emit      func(pcm []byte)
}

// NewCapturePipeline creates a pipeline emitting blocks of blockSize samples.
func NewCapturePipeline(source SampleSource, blockSize int, emit func(pcm []byte)) *CapturePipeline {
	return &CapturePipeline{source: source, blockSize: blockSize, emit: emit}
}

// Run pumps the source until it ends, fails, or stop closes. Returns nil on
// a clean end of stream.
func (c *CapturePipeline) Run(stop <-chan struct{}) error {
	pending := make([]float32, 0, 2*c.blockSize)
	buf := make([]float32, c.blockSize)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := c.source.ReadSamples(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for len(pending) >= c.blockSize {
				block := audio.PCM16FromFloat32(pending[:c.blockSize])
				pending = pending[c.blockSize:]
				select {
				case <-stop:
					return nil
				default:
				}
				c.emit(block)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
