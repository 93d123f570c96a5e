package search

import "strings"

// snippetMaxChars is the display length cap, counted in runes so CJK
// content truncates correctly.
const snippetMaxChars = 120

const snippetEllipsis = "..."

// GenerateSnippet returns the first sentence containing the most distinct
// query terms, truncated to the display length. Content without any term
// yields the truncated head; empty content yields the empty string.
func GenerateSnippet(content, normalizedQuery string) string {
	if content == "" {
		return ""
	}

	terms := uniqueTokens(normalizedQuery)

	best := ""
	bestScore := 0

	for _, sentence := range splitSentences(content) {
		if score := scoreSentence(sentence, terms); score > bestScore {
			best, bestScore = sentence, score
		}
	}

	if bestScore == 0 {
		return truncateSnippet(content)
	}

	return truncateSnippet(best)
}

// splitSentences breaks content on sentence delimiters, dropping empty
// pieces.
func splitSentences(content string) []string {
	pieces := strings.FieldsFunc(content, func(r rune) bool {
		switch r {
		case '.', '!', '?', '。':
			return true
		default:
			return false
		}
	})

	sentences := make([]string, 0, len(pieces))

	for _, piece := range pieces {
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	return sentences
}

// scoreSentence counts the distinct query terms the sentence contains.
func scoreSentence(sentence string, terms []string) int {
	lowered := strings.ToLower(sentence)
	score := 0

	for _, term := range terms {
		if strings.Contains(lowered, term) {
			score++
		}
	}

	return score
}

// uniqueTokens lowercases and deduplicates the query's whitespace tokens,
// preserving order.
func uniqueTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))

	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, field := range fields {
		if seen[field] {
			continue
		}

		seen[field] = true

		tokens = append(tokens, field)
	}

	return tokens
}

func truncateSnippet(s string) string {
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) <= snippetMaxChars {
		return s
	}

	return string(runes[:snippetMaxChars]) + snippetEllipsis
}
