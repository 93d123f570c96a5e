package search

import (
	"context"

	"github.com/jonesrussell/gosearch/internal/logger"
)

// intentScoreFloor is the minimum relation score for intent expansion.
const intentScoreFloor = 0.8

// RelationSource returns the best related query above a score floor, or
// "" when none qualifies.
type RelationSource interface {
	Lookup(ctx context.Context, source string, minScore float64) (string, error)
}

// IntentExpander widens a normalized query with its strongest learned
// relation. Runs before synonym expansion.
type IntentExpander struct {
	relations RelationSource
	log       logger.Logger
}

// NewIntentExpander creates an intent expander over the relations store.
func NewIntentExpander(relations RelationSource, log logger.Logger) *IntentExpander {
	return &IntentExpander{
		relations: relations,
		log:       log,
	}
}

// Expand returns "<query> OR <target>" when a strong relation exists,
// otherwise the query unchanged. Lookup failures degrade to identity.
func (e *IntentExpander) Expand(ctx context.Context, query string) string {
	target, err := e.relations.Lookup(ctx, query, intentScoreFloor)
	if err != nil {
		e.log.Error("failed to look up query intent",
			logger.String("query", query),
			logger.Error(err),
		)

		return query
	}

	if target == "" || target == query {
		return query
	}

	return query + " OR " + target
}
