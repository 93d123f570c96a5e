package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery canonicalizes raw user input: Unicode NFKC fold, lower
// case, whitespace runs collapsed to single spaces, trimmed. Same input
// always yields the same output; empty input yields empty output.
func NormalizeQuery(raw string) string {
	folded := norm.NFKC.String(raw)
	lowered := strings.ToLower(folded)

	return strings.Join(strings.Fields(lowered), " ")
}
