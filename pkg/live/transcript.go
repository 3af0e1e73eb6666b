package live

// Transcript merges incremental partial-text events into per-turn entries.
// Two independent lanes (user and model) accumulate over one shared ordered
// sequence: a delta extends the last entry when it belongs to the same lane
// and is not yet final, otherwise it opens a new entry. The remote interleaves
// partial updates for both lanes within one turn; each entry only ever grows
// append-only until frozen.
//
// Transcript is not safe for concurrent use; the Session serializes access on
// its dispatch path.
type Transcript struct {
	entries []TranscriptEntry
}

// AddDelta applies one incremental text fragment for the given lane.
func (t *Transcript) AddDelta(source Speaker, delta string) {
	if delta == "" {
		return
	}
	if n := len(t.entries); n > 0 {
		last := &t.entries[n-1]
		if last.Source == source && !last.IsFinal {
			last.Text += delta
			return
		}
	}
	t.entries = append(t.entries, TranscriptEntry{Source: source, Text: delta})
}

// FinalizeAll freezes every entry. Idempotent: re-marking final entries is
// harmless.
func (t *Transcript) FinalizeAll() {
	for i := range t.entries {
		t.entries[i].IsFinal = true
	}
}

// Reset clears the sequence for a new session.
func (t *Transcript) Reset() {
	t.entries = nil
}

// Entries returns a copy of the ordered sequence.
func (t *Transcript) Entries() []TranscriptEntry {
	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}
