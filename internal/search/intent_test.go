package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/search"
)

// mockRelationSource implements search.RelationSource for testing.
type mockRelationSource struct {
	target       string
	err          error
	lastSource   string
	lastMinScore float64
}

func (m *mockRelationSource) Lookup(_ context.Context, source string, minScore float64) (string, error) {
	m.lastSource = source
	m.lastMinScore = minScore

	if m.err != nil {
		return "", m.err
	}

	return m.target, nil
}

func TestIntentExpand_StrongRelation(t *testing.T) {
	t.Parallel()

	relations := &mockRelationSource{target: "golang tutorial"}
	expander := search.NewIntentExpander(relations, logger.NewNop())

	got := expander.Expand(context.Background(), "go tutorial")
	if got != "go tutorial OR golang tutorial" {
		t.Errorf("expected widened query, got %q", got)
	}

	if relations.lastSource != "go tutorial" {
		t.Errorf("expected lookup of the normalized query, got %q", relations.lastSource)
	}

	if relations.lastMinScore != 0.8 {
		t.Errorf("expected score floor 0.8, got %v", relations.lastMinScore)
	}
}

func TestIntentExpand_NoRelation(t *testing.T) {
	t.Parallel()

	relations := &mockRelationSource{}
	expander := search.NewIntentExpander(relations, logger.NewNop())

	if got := expander.Expand(context.Background(), "rare query"); got != "rare query" {
		t.Errorf("expected query unchanged, got %q", got)
	}
}

func TestIntentExpand_LookupErrorDegradesToIdentity(t *testing.T) {
	t.Parallel()

	relations := &mockRelationSource{err: errors.New("connection refused")}
	expander := search.NewIntentExpander(relations, logger.NewNop())

	if got := expander.Expand(context.Background(), "go"); got != "go" {
		t.Errorf("expected query unchanged on error, got %q", got)
	}
}

func TestIntentExpand_SelfRelationIgnored(t *testing.T) {
	t.Parallel()

	relations := &mockRelationSource{target: "go"}
	expander := search.NewIntentExpander(relations, logger.NewNop())

	if got := expander.Expand(context.Background(), "go"); got != "go" {
		t.Errorf("expected self-relation ignored, got %q", got)
	}
}
