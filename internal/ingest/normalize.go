package ingest

import (
	"errors"
	"strings"
	"unicode"
)

// ErrEmptyContent is returned when a document yields no usable text.
var ErrEmptyContent = errors.New("document contains no usable text")

// minContentLen is the minimum normalized length worth chunking at all.
const minContentLen = 10

// Normalize prepares extracted text for chunking: non-printable runes are
// dropped, whitespace runs collapse to a single space, and the result is
// trimmed. Returns ErrEmptyContent when fewer than minContentLen characters
// remain.
func Normalize(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			wasSpace = false
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) < minContentLen {
		return "", ErrEmptyContent
	}
	return out, nil
}
