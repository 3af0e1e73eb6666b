package live

import "sync"

// resourceSet tracks session resources in acquisition order and releases
// them exactly once, most recently acquired first. Safe to release after a
// partial acquisition.
type resourceSet struct {
	mu       sync.Mutex
	releases []func()
	released bool
}

func (r *resourceSet) add(release func()) {
	r.mu.Lock()
	if r.released {
		// Teardown already ran; release the latecomer immediately.
		r.mu.Unlock()
		release()
		return
	}
	r.releases = append(r.releases, release)
	r.mu.Unlock()
}

func (r *resourceSet) releaseAll() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	releases := r.releases
	r.releases = nil
	r.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
