package textpatch

import (
	"errors"
	"strings"
)

// ErrAnchorNotFound is returned when a suggestion's original text cannot be
// located anywhere in the current document. The caller falls back to a
// manual side-by-side compare; the document is never partially modified.
var ErrAnchorNotFound = errors.New("original text not found in document")

// Range is a half-open character interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the width of the range.
func (r Range) Len() int { return r.End - r.Start }

// Apply replaces one occurrence of oldText with newText and returns the new
// document plus the range the replacement occupies in the result.
//
// The anchor search is two-stage: first the paragraph at paragraphIndex
// (the position the suggestion was generated against), then, if the user
// has edited the text out from under that paragraph, the first verbatim
// occurrence anywhere in the document. If neither matches, the content is
// returned unmodified alongside ErrAnchorNotFound.
func Apply(content string, paragraphIndex int, oldText, newText string) (string, Range, error) {
	if oldText == "" {
		return content, Range{}, ErrAnchorNotFound
	}

	at := -1
	paras := Segment(content)
	if paragraphIndex >= 0 && paragraphIndex < len(paras) {
		p := paras[paragraphIndex]
		if rel := strings.Index(p.Text, oldText); rel >= 0 {
			at = p.Start + rel
		}
	}
	if at < 0 {
		at = strings.Index(content, oldText)
	}
	if at < 0 {
		return content, Range{}, ErrAnchorNotFound
	}

	var b strings.Builder
	b.Grow(len(content) - len(oldText) + len(newText))
	b.WriteString(content[:at])
	b.WriteString(newText)
	b.WriteString(content[at+len(oldText):])

	return b.String(), Range{Start: at, End: at + len(newText)}, nil
}
