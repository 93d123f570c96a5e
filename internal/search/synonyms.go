package search

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/jonesrussell/gosearch/internal/logger"
)

// SynonymExpander rewrites a normalized query into OR groups using a
// JSON dictionary of normalized_term -> [synonym, ...].
type SynonymExpander struct {
	synonyms map[string][]string
}

// NewSynonymExpander loads the dictionary at path. A missing or malformed
// file degrades gracefully to identity expansion.
func NewSynonymExpander(path string, log logger.Logger) *SynonymExpander {
	e := &SynonymExpander{synonyms: map[string][]string{}}

	if path == "" {
		return e
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("synonym dictionary unavailable",
			logger.String("path", path),
			logger.Error(err),
		)

		return e
	}

	if unmarshalErr := json.Unmarshal(data, &e.synonyms); unmarshalErr != nil {
		log.Warn("synonym dictionary malformed",
			logger.String("path", path),
			logger.Error(unmarshalErr),
		)

		e.synonyms = map[string][]string{}
	}

	return e
}

// Expand tokenizes on whitespace and replaces each token that has
// synonyms with a sorted, deduplicated `(t1 OR t2 OR ...)` group. Groups
// are joined with spaces, which the full-text dialect treats as AND.
func (e *SynonymExpander) Expand(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return query
	}

	groups := make([]string, 0, len(tokens))
	for _, token := range tokens {
		groups = append(groups, e.expandToken(token))
	}

	return strings.Join(groups, " ")
}

func (e *SynonymExpander) expandToken(token string) string {
	variants := e.synonyms[token]
	if len(variants) == 0 {
		return token
	}

	set := make(map[string]bool, len(variants)+1)
	set[token] = true

	for _, variant := range variants {
		if variant != "" {
			set[variant] = true
		}
	}

	if len(set) == 1 {
		return token
	}

	terms := make([]string, 0, len(set))
	for term := range set {
		terms = append(terms, term)
	}

	sort.Strings(terms)

	return "(" + strings.Join(terms, " OR ") + ")"
}
