// Package normalizer turns raw expense descriptions into the canonical
// token stream shared by training and inference. The same function must
// be applied on both paths or the model's labels stop matching its
// inputs.
package normalizer

import (
	"regexp"
	"strings"
)

var (
	// Digit runs with an optional currency tail: "250 ₽", "15$", "3".
	amountRe = regexp.MustCompile(`\d+\s*[₽руб$€]?`)
	// Anything that is neither a letter, digit, underscore nor
	// whitespace becomes a space.
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// Normalize lower-cases, trims, strips amounts, replaces punctuation
// with spaces and collapses whitespace. It is deterministic and
// idempotent. An empty result means the text carries no usable signal;
// callers must skip such texts rather than train or predict on them.
func Normalize(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	text = amountRe.ReplaceAllString(text, "")
	text = punctRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
