// Package diff computes word-level differences between an original text and
// its corrected version.
package diff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is one run of text in a word diff. Added and Removed are never both
// set; a segment with neither flag is unchanged text.
type Segment struct {
	Value   string `json:"value"`
	Added   bool   `json:"added,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// Kind classifies a segment.
type Kind int

const (
	// KindUnchanged is text present in both inputs
	KindUnchanged Kind = iota
	// KindAdded is text present only in the corrected input
	KindAdded
	// KindRemoved is text present only in the original input
	KindRemoved
)

// String returns the string representation of a segment kind.
func (k Kind) String() string {
	switch k {
	case KindUnchanged:
		return "unchanged"
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Kind returns the classification of the segment.
func (s Segment) Kind() Kind {
	switch {
	case s.Added:
		return KindAdded
	case s.Removed:
		return KindRemoved
	default:
		return KindUnchanged
	}
}

// Stats counts words per segment kind.
type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Words diffs original against corrected at word granularity. Comparison is
// case-sensitive, so a change in capitalisation is reported as a removal
// followed by an addition.
func Words(original, corrected string) []Segment {
	a := tokenize(original)
	b := tokenize(corrected)

	ops := align(a, b)

	var segments []Segment
	var unchanged, removed, added strings.Builder

	flush := func() {
		if unchanged.Len() > 0 {
			segments = append(segments, Segment{Value: unchanged.String()})
			unchanged.Reset()
		}
		if removed.Len() > 0 {
			segments = append(segments, Segment{Value: removed.String(), Removed: true})
			removed.Reset()
		}
		if added.Len() > 0 {
			segments = append(segments, Segment{Value: added.String(), Added: true})
			added.Reset()
		}
	}

	for _, op := range ops {
		switch op.kind {
		case KindRemoved, KindAdded:
			if unchanged.Len() > 0 {
				flush()
			}
			if op.kind == KindRemoved {
				removed.WriteString(op.token)
			} else {
				added.WriteString(op.token)
			}
		default:
			if removed.Len() > 0 || added.Len() > 0 {
				flush()
			}
			unchanged.WriteString(op.token)
		}
	}
	flush()

	return segments
}

// Original rebuilds the original text from unchanged and removed segments.
func Original(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		if !s.Added {
			sb.WriteString(s.Value)
		}
	}
	return sb.String()
}

// Corrected rebuilds the corrected text from unchanged and added segments.
func Corrected(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		if !s.Removed {
			sb.WriteString(s.Value)
		}
	}
	return sb.String()
}

// Summarize counts the words carried by each kind of segment.
func Summarize(segments []Segment) Stats {
	var stats Stats
	for _, s := range segments {
		n := countWords(s.Value)
		switch s.Kind() {
		case KindAdded:
			stats.Added += n
		case KindRemoved:
			stats.Removed += n
		default:
			stats.Unchanged += n
		}
	}
	return stats
}

// Changed reports whether any segment is an addition or removal.
func Changed(segments []Segment) bool {
	for _, s := range segments {
		if s.Added || s.Removed {
			return true
		}
	}
	return false
}

type op struct {
	kind  Kind
	token string
}

// align matches a against b with a Myers diff. Each distinct token is mapped
// to one rune so the rune diff aligns whole tokens; memory stays linear in the
// number of tokens.
func align(a, b []string) []op {
	index := make(map[string]rune)
	var tokens []string

	encode := func(toks []string) ([]rune, bool) {
		runes := make([]rune, len(toks))
		for i, tok := range toks {
			r, ok := index[tok]
			if !ok {
				r = tokenRune(len(tokens))
				if r > unicode.MaxRune {
					return nil, false
				}
				index[tok] = r
				tokens = append(tokens, tok)
			}
			runes[i] = r
		}
		return runes, true
	}

	ra, okA := encode(a)
	rb, okB := encode(b)
	if !okA || !okB {
		// Too many distinct tokens to map; report a full replacement
		return appendOps(appendOps(nil, KindRemoved, a), KindAdded, b)
	}

	dmp := diffmatchpatch.New()
	ops := make([]op, 0, len(a)+len(b))
	for _, d := range dmp.DiffMainRunes(ra, rb, false) {
		kind := KindUnchanged
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = KindRemoved
		case diffmatchpatch.DiffInsert:
			kind = KindAdded
		}
		for _, r := range d.Text {
			ops = append(ops, op{kind: kind, token: tokens[runeIndex(r)]})
		}
	}

	return ops
}

// tokenRune maps a token index to a rune, skipping the surrogate range so
// every rune survives the round trip through a string.
func tokenRune(i int) rune {
	r := rune(i)
	if r >= surrogateMin {
		r += surrogateMax - surrogateMin + 1
	}
	return r
}

func runeIndex(r rune) int {
	if r > surrogateMax {
		r -= surrogateMax - surrogateMin + 1
	}
	return int(r)
}

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

func appendOps(ops []op, kind Kind, tokens []string) []op {
	for _, tok := range tokens {
		ops = append(ops, op{kind: kind, token: tok})
	}
	return ops
}

// tokenize splits text into word runs, whitespace runs and single
// punctuation characters. An apostrophe between two word characters stays
// inside the word, so contractions diff as one token. Tokens are substrings
// of text, so invalid UTF-8 survives as single-byte tokens.
func tokenize(text string) []string {
	var tokens []string

	for i := 0; i < len(text); {
		start := i
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		switch {
		case isWordRune(r):
			for i < len(text) {
				r, size := utf8.DecodeRuneInString(text[i:])
				if isWordRune(r) {
					i += size
					continue
				}
				if isApostrophe(r) && i+size < len(text) {
					if next, _ := utf8.DecodeRuneInString(text[i+size:]); isWordRune(next) {
						i += size
						continue
					}
				}
				break
			}
		case unicode.IsSpace(r):
			for i < len(text) {
				r, size := utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
		}
		tokens = append(tokens, text[start:i])
	}

	return tokens
}

func countWords(text string) int {
	count := 0
	for _, tok := range tokenize(text) {
		if r, _ := utf8.DecodeRuneInString(tok); isWordRune(r) {
			count++
		}
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}
