package match

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes nonspacing marks after canonical decomposition, folding
// "café" to "cafe". On a transform error the input is returned unchanged;
// a stritem that cannot be normalized should still be matchable as is.
func stripMarks(s string) string {
	// Chained transformers carry internal state, so build one per call
	// rather than sharing across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
