package guide

import (
	"strings"
	"unicode"
)

// noiseTokens are standalone words that carry no channel identity.
var noiseTokens = map[string]bool{
	"hd":      true,
	"sd":      true,
	"channel": true,
	"tv":      true,
}

// NormalizeName canonicalizes a channel name for matching: lowercase,
// punctuation stripped, noise tokens removed, single spaces between words.
// Idempotent, so already-normalized names pass through unchanged.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if noiseTokens[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// NormalizeGuideID canonicalizes a guide channel id: trimmed and lowercase.
// Applied to ids on both sides of a correlation, so the feed's casing and
// the portal's never disagree.
func NormalizeGuideID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
