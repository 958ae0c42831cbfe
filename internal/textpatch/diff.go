package textpatch

// SpanKind classifies one segment of a highlight decomposition.
type SpanKind uint8

const (
	SpanSame SpanKind = iota
	SpanRemoved
	SpanAdded
)

// String returns the string representation of the span kind.
func (k SpanKind) String() string {
	switch k {
	case SpanSame:
		return "same"
	case SpanRemoved:
		return "removed"
	case SpanAdded:
		return "added"
	default:
		return "unknown"
	}
}

// Span is one piece of a highlight decomposition.
type Span struct {
	Kind SpanKind
	Text string
}

// Highlight trims the symmetric common prefix and suffix of oldText and
// newText and returns a three-to-five span decomposition (same prefix,
// removed middle, added middle, same suffix, with empty spans dropped).
// This is a presentation aid only; patch placement never depends on it.
func Highlight(oldText, newText string) []Span {
	o := []rune(oldText)
	n := []rune(newText)

	prefix := 0
	for prefix < len(o) && prefix < len(n) && o[prefix] == n[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(o)-prefix && suffix < len(n)-prefix &&
		o[len(o)-1-suffix] == n[len(n)-1-suffix] {
		suffix++
	}

	var spans []Span
	if prefix > 0 {
		spans = append(spans, Span{Kind: SpanSame, Text: string(o[:prefix])})
	}
	if mid := o[prefix : len(o)-suffix]; len(mid) > 0 {
		spans = append(spans, Span{Kind: SpanRemoved, Text: string(mid)})
	}
	if mid := n[prefix : len(n)-suffix]; len(mid) > 0 {
		spans = append(spans, Span{Kind: SpanAdded, Text: string(mid)})
	}
	if suffix > 0 {
		spans = append(spans, Span{Kind: SpanSame, Text: string(o[len(o)-suffix:])})
	}
	return spans
}
