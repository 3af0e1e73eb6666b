package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAccumulatesDeltas(t *testing.T) {
	var tr Transcript

	tr.AddDelta(SpeakerUser, "Hel")
	tr.AddDelta(SpeakerUser, "lo")

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, TranscriptEntry{Source: SpeakerUser, Text: "Hello", IsFinal: false}, entries[0])
}

func TestTranscriptInterleavedLanes(t *testing.T) {
	var tr Transcript

	tr.AddDelta(SpeakerUser, "what is ")
	tr.AddDelta(SpeakerModel, "I see ")
	tr.AddDelta(SpeakerModel, "a cup")
	tr.AddDelta(SpeakerUser, "this?")

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, SpeakerUser, entries[0].Source)
	assert.Equal(t, "what is ", entries[0].Text)
	assert.Equal(t, "I see a cup", entries[1].Text)
	assert.Equal(t, "this?", entries[2].Text)
}

func TestTranscriptConcatenationOrder(t *testing.T) {
	var tr Transcript
	deltas := []string{"a", "b", "c", "d"}

	want := ""
	for _, d := range deltas {
		tr.AddDelta(SpeakerModel, d)
		want += d
	}

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, want, entries[0].Text)
}

func TestTranscriptFinalizeAll(t *testing.T) {
	var tr Transcript
	tr.AddDelta(SpeakerUser, "done")
	tr.AddDelta(SpeakerModel, "reply")

	tr.FinalizeAll()
	for _, e := range tr.Entries() {
		assert.True(t, e.IsFinal)
	}

	// Finalizing again is harmless.
	tr.FinalizeAll()
	assert.Equal(t, 2, tr.Len())

	// A delta after finalization opens a fresh entry rather than mutating a
	// frozen one.
	tr.AddDelta(SpeakerUser, "next")
	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.False(t, entries[2].IsFinal)
	assert.Equal(t, "next", entries[2].Text)
}

func TestTranscriptEmptyDeltaIgnored(t *testing.T) {
	var tr Transcript
	tr.AddDelta(SpeakerUser, "")
	assert.Zero(t, tr.Len())
}

func TestTranscriptReset(t *testing.T) {
	var tr Transcript
	tr.AddDelta(SpeakerUser, "old")
	tr.Reset()
	assert.Zero(t, tr.Len())
}

func TestTranscriptEntriesIsACopy(t *testing.T) {
	var tr Transcript
	tr.AddDelta(SpeakerUser, "abc")

	entries := tr.Entries()
	entries[0].Text = "mutated"

	assert.Equal(t, "abc", tr.Entries()[0].Text)
}
