package ledger

import (
	"fmt"
	"testing"

	"github.com/penflow/penflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSuggestion(idx int, original string) models.Suggestion {
	return models.Suggestion{
		ParagraphIndex: idx,
		OriginalText:   original,
		SuggestedText:  original + " (edited)",
		Category:       "style",
		Priority:       models.PriorityMedium,
	}
}

func TestLedgerAddDeduplicates(t *testing.T) {
	l := New(0)
	s := makeSuggestion(0, "some text")

	l.Add(s)
	l.Add(s)

	assert.Equal(t, 1, l.Len())
}

func TestLedgerAddBatch(t *testing.T) {
	l := New(0)
	l.Add(makeSuggestion(0, "first"))

	l.AddBatch([]models.Suggestion{
		makeSuggestion(0, "first"), // already present
		makeSuggestion(1, "second"),
		makeSuggestion(2, "third"),
	})

	suggestions := l.Suggestions()
	require.Len(t, suggestions, 3)
	assert.Equal(t, "first", suggestions[0].OriginalText)
	assert.Equal(t, "third", suggestions[2].OriginalText)
}

func TestLedgerAppliedTracking(t *testing.T) {
	l := New(0)
	s := makeSuggestion(0, "text")
	l.Add(s)

	assert.False(t, l.IsApplied(s.Key()))
	l.MarkApplied(s.Key())
	assert.True(t, l.IsApplied(s.Key()))
	assert.Equal(t, 1, l.AppliedCount())
}

func TestLedgerUndoRoundTrip(t *testing.T) {
	l := New(0)
	s := makeSuggestion(0, "text")
	l.Add(s)

	l.PushUndo(models.UndoSnapshot{Content: "before", Key: s.Key()})
	l.MarkApplied(s.Key())

	snap, err := l.PopUndo()
	require.NoError(t, err)
	assert.Equal(t, "before", snap.Content)
	assert.False(t, l.IsApplied(s.Key()), "undo must un-mark the suggestion as applied")

	_, err = l.PopUndo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestLedgerUndoDepthEviction(t *testing.T) {
	l := New(3)
	for i := 0; i < 5; i++ {
		l.PushUndo(models.UndoSnapshot{Content: fmt.Sprintf("v%d", i), Key: fmt.Sprintf("k%d", i)})
	}

	assert.Equal(t, 3, l.UndoCount())
	snap, err := l.PopUndo()
	require.NoError(t, err)
	assert.Equal(t, "v4", snap.Content, "undo is last-in-first-out")
}

func TestLedgerReset(t *testing.T) {
	l := New(0)
	s := makeSuggestion(0, "text")
	l.Add(s)
	l.MarkApplied(s.Key())
	l.PushUndo(models.UndoSnapshot{Content: "before", Key: s.Key()})

	l.Reset()

	assert.Zero(t, l.Len())
	assert.Zero(t, l.AppliedCount())
	assert.False(t, l.CanUndo())
}

func TestLedgerSubscribe(t *testing.T) {
	l := New(0)
	calls := 0
	l.Subscribe(func() { calls++ })

	l.Add(makeSuggestion(0, "text"))
	l.Add(makeSuggestion(0, "text")) // duplicate, no change, no notify
	l.Reset()

	assert.Equal(t, 2, calls)
}
