package live

import (
	"sync"
	"time"

	"github.com/spotlight-go/spotlight/pkg/live/protocol"
)

// OverlayManager converts highlight tool calls into normalized overlay boxes
// and expires them after a fixed window. Each batch replaces the active set
// wholesale ("latest observation wins") and rearms a single expiry timer,
// canceling any previous one.
type OverlayManager struct {
	clock  Clock
	window time.Duration

	// onChange is invoked outside the lock with the new active set (nil when
	// the set expired).
	onChange func([]BoundingBox)

	mu    sync.Mutex
	boxes []BoundingBox
	timer Timer
	arm   uint64
}

// NewOverlayManager creates an overlay manager with the given expiry window.
func NewOverlayManager(window time.Duration, clock Clock, onChange func([]BoundingBox)) *OverlayManager {
	if clock == nil {
		clock = SystemClock
	}
	return &OverlayManager{
		clock:    clock,
		window:   window,
		onChange: onChange,
	}
}

// Apply replaces the active box set with the batch and rearms the expiry
// timer. Objects whose geometry normalizes to a non-positive width or height
// are skipped without failing the batch.
func (m *OverlayManager) Apply(objects []protocol.HighlightObject) {
	boxes := make([]BoundingBox, 0, len(objects))
	for _, obj := range objects {
		box, ok := normalizeBox(obj)
		if !ok {
			continue
		}
		boxes = append(boxes, box)
	}

	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.boxes = boxes
	m.arm++
	gen := m.arm
	m.timer = m.clock.AfterFunc(m.window, func() { m.expire(gen) })
	notify := append([]BoundingBox(nil), boxes...)
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(notify)
	}
}

func (m *OverlayManager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.arm {
		// A later batch replaced both the boxes and the clock.
		m.mu.Unlock()
		return
	}
	m.boxes = nil
	m.timer = nil
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(nil)
	}
}

// Clear cancels the expiry timer and empties the set without notifying.
// Used during session start and teardown.
func (m *OverlayManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arm++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.boxes = nil
}

// Boxes returns a copy of the active set.
func (m *OverlayManager) Boxes() []BoundingBox {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BoundingBox, len(m.boxes))
	copy(out, m.boxes)
	return out
}

// normalizeBox maps a remote-reported [ymin, xmin, ymax, xmax] box in
// [0, 1000] pixel space to normalized [0, 1] coordinates.
func normalizeBox(obj protocol.HighlightObject) (BoundingBox, bool) {
	if len(obj.Box2D) != 4 {
		return BoundingBox{}, false
	}
	ymin, xmin, ymax, xmax := obj.Box2D[0], obj.Box2D[1], obj.Box2D[2], obj.Box2D[3]
	box := BoundingBox{
		X:      float64(xmin) / 1000,
		Y:      float64(ymin) / 1000,
		Width:  float64(xmax-xmin) / 1000,
		Height: float64(ymax-ymin) / 1000,
		Label:  obj.Label,
	}
	if box.Width <= 0 || box.Height <= 0 {
		return BoundingBox{}, false
	}
	return box, true
}
