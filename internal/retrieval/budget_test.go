package retrieval

import (
	"testing"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func rs(id string, tokens int, source model.ContextSourceTag, relevance float64) RerankedSection {
	return RerankedSection{Section: model.ContextSection{ID: id, Tokens: tokens, Source: source, Relevance: relevance}}
}

func TestPackIncludesWhileBudgetLasts(t *testing.T) {
	ranked := []RerankedSection{
		rs("a", 100, model.SourceRAG, 0.9),
		rs("b", 100, model.SourceRAG, 0.8),
		rs("c", 100, model.SourceRAG, 0.7),
	}
	packed := Pack(ranked, 450)
	require.True(t, packed[0].Included)
	require.True(t, packed[1].Included)
	require.False(t, packed[2].Included)
	require.Equal(t, "token_budget", packed[2].ExclusionReason)
}

func TestPackStrictlyLessOrEqual(t *testing.T) {
	ranked := []RerankedSection{rs("a", 300, model.SourceRAG, 0.9)}
	packed := Pack(ranked, 500)
	require.True(t, packed[0].Included)

	packed = Pack(ranked, 499)
	require.False(t, packed[0].Included)
}

func TestPackNeverDropsSections(t *testing.T) {
	ranked := []RerankedSection{
		rs("a", 1000, model.SourceRAG, 0.9),
		rs("b", 1000, model.SourceKAG, 0.8),
	}
	packed := Pack(ranked, 500)
	require.Len(t, packed, 2)
	require.False(t, packed[0].Included)
	require.False(t, packed[1].Included)
}

func TestDisplayOrderGroupsBySourceThenRelevance(t *testing.T) {
	packed := []PackedSection{
		{Included: true, Reranked: rs("kag1", 10, model.SourceKAG, 0.9)},
		{Included: true, Reranked: rs("rag1", 10, model.SourceRAG, 0.5)},
		{Included: true, Reranked: rs("graph1", 10, model.SourceGraphRAG, 0.95)},
		{Included: true, Reranked: rs("rag2", 10, model.SourceRAG, 0.8)},
		{Included: false, Reranked: rs("excluded", 10, model.SourceRAG, 0.99)},
	}
	order := DisplayOrder(packed)
	require.Len(t, order, 4)
	require.Equal(t, []string{"rag2", "rag1", "graph1", "kag1"}, []string{order[0].ID, order[1].ID, order[2].ID, order[3].ID})
}
