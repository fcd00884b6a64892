package survey

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize canonicalizes a question or answer label for matching: width
// folding (full-width ASCII, half-width kana), NFKC, trimmed, with internal
// whitespace runs collapsed to one space.
func Normalize(s string) string {
	s = norm.NFKC.String(width.Fold.String(s))
	return strings.Join(strings.Fields(s), " ")
}
