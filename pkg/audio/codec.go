// Package audio provides pure, stateless audio transforms for the live
// pipeline: base64 payload transcoding, float-to-PCM16 conversion for
// outbound microphone frames, and PCM byte-stream decoding into playable
// buffers. All functions are safe for concurrent use.
package audio

import (
	"encoding/base64"
	"fmt"
)

// EncodeBase64 transcodes a binary frame payload to its text form.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 transcodes a text frame payload back to binary.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}

// PCM16FromFloat32 converts float samples in [-1, 1] to 16-bit signed
// little-endian PCM. Samples are scaled by 32768 and truncated; no clamping
// or dithering is applied.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		s := int16(sample * 32768)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
