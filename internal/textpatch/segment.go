package textpatch

import "regexp"

// Paragraph is one segment of a document, with half-open byte offsets into
// the document it was computed from.
type Paragraph struct {
	Index int
	Start int
	End   int
	Text  string
}

var paragraphSep = regexp.MustCompile(`\n{2,}`)

// Segment splits content on runs of two or more newlines. Offsets are only
// valid against the exact content passed in; re-segment after every edit.
func Segment(content string) []Paragraph {
	if content == "" {
		return nil
	}

	var paras []Paragraph
	pos := 0
	for _, sep := range paragraphSep.FindAllStringIndex(content, -1) {
		if sep[0] > pos {
			paras = appendParagraph(paras, content, pos, sep[0])
		}
		pos = sep[1]
	}
	if pos < len(content) {
		paras = appendParagraph(paras, content, pos, len(content))
	}
	return paras
}

func appendParagraph(paras []Paragraph, content string, start, end int) []Paragraph {
	return append(paras, Paragraph{
		Index: len(paras),
		Start: start,
		End:   end,
		Text:  content[start:end],
	})
}
