package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer folds text for case and accent insensitive matching.
// This is not safe for concurrent use.
type TextNormalizer struct {
	transformer transform.Transformer
	caser       cases.Caser
}

// NewTextNormalizer creates a new TextNormalizer instance.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{
		transformer: transform.Chain(
			norm.NFKD,                          // Decompose with compatibility decomposition
			runes.Remove(runes.In(unicode.Mn)), // Remove non-spacing marks
			norm.NFKC,                          // Recompose
		),
		caser: cases.Fold(),
	}
}

// Normalize cleans up text using the normalizer.
// Returns empty string if normalization fails or input is empty.
func (n *TextNormalizer) Normalize(s string) string {
	s = CompressAllWhitespace(s)
	if s == "" {
		return ""
	}

	result, _, err := transform.String(n.transformer, s)
	if err != nil || result == "" {
		return ""
	}

	return n.caser.String(result)
}

// Contains checks if substr exists within s using the normalizer.
// Empty strings return false.
func (n *TextNormalizer) Contains(s, substr string) bool {
	if s == "" || substr == "" {
		return false
	}

	normalizedS := n.Normalize(s)
	normalizedSubstr := n.Normalize(substr)

	if normalizedS == "" || normalizedSubstr == "" {
		return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
	}

	return strings.Contains(normalizedS, normalizedSubstr)
}

// Equal reports whether a and b are the same after normalization.
func (n *TextNormalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}
