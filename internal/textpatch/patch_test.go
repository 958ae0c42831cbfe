package textpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = "The rain fell softly.\n\nHe walked to the station.\n\nShe waited inside."

func TestApplyPrimaryAnchor(t *testing.T) {
	got, r, err := Apply(doc, 1, "walked to the station", "ran to the platform")
	require.NoError(t, err)

	want := "The rain fell softly.\n\nHe ran to the platform.\n\nShe waited inside."
	assert.Equal(t, want, got)
	assert.Equal(t, "ran to the platform", got[r.Start:r.End], "range must span the replacement")
}

func TestApplyFallbackAnchor(t *testing.T) {
	// The paragraph index points at a paragraph that no longer contains the
	// original text; the first verbatim occurrence elsewhere still matches.
	got, r, err := Apply(doc, 0, "She waited inside.", "She waited on the bench.")
	require.NoError(t, err)
	assert.Equal(t, "The rain fell softly.\n\nHe walked to the station.\n\nShe waited on the bench.", got)
	assert.Equal(t, "She waited on the bench.", got[r.Start:r.End])
}

func TestApplyParagraphIndexOutOfRange(t *testing.T) {
	got, _, err := Apply(doc, 99, "rain fell", "snow fell")
	require.NoError(t, err, "out-of-range paragraph index must fall through to the secondary anchor")
	assert.Contains(t, got, "snow fell")
}

func TestApplyNoMatch(t *testing.T) {
	got, r, err := Apply(doc, 0, "text that is not there", "replacement")
	assert.ErrorIs(t, err, ErrAnchorNotFound)
	assert.Equal(t, doc, got, "document must be returned unmodified on anchor miss")
	assert.Equal(t, Range{}, r)
}

func TestApplyEmptyOriginal(t *testing.T) {
	_, _, err := Apply(doc, 0, "", "anything")
	assert.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestApplyFirstOccurrenceInParagraphWins(t *testing.T) {
	content := "aa bb aa"
	got, r, err := Apply(content, 0, "aa", "cc")
	require.NoError(t, err)
	assert.Equal(t, "cc bb aa", got)
	assert.Equal(t, Range{Start: 0, End: 2}, r)
}
