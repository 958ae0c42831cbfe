package optimizer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var rangeToken = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// ParseParagraphRanges parses a scope expression of comma or space
// separated tokens, each a bare 1-based paragraph number or an inclusive
// a-b range (either direction). Indices are intersected with
// [1, total], de-duplicated and returned sorted ascending as 0-based
// indices. Malformed or fully out-of-range tokens are dropped silently; an
// empty result is the caller's cue to report "no valid paragraphs" rather
// than fail hard.
func ParseParagraphRanges(expr string, total int) []int {
	if total <= 0 {
		return nil
	}

	tokens := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[int]bool)
	for _, tok := range tokens {
		m := rangeToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}

		lo, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		hi := lo
		if m[2] != "" {
			hi, err = strconv.Atoi(m[2])
			if err != nil {
				continue
			}
		}
		if lo > hi {
			lo, hi = hi, lo
		}

		if lo < 1 {
			lo = 1
		}
		if hi > total {
			hi = total
		}
		for i := lo; i <= hi; i++ {
			seen[i] = true
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i-1)
	}
	sort.Ints(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
