package retrieval

import (
	"testing"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/router"
	"github.com/stretchr/testify/require"
)

func TestRerankIsAPermutation(t *testing.T) {
	cfg := router.Config{Route: model.RouteHybrid, RAGRatio: 0.55, KAGRatio: 0.3, GraphRAGRatio: 0.15}
	candidates := []model.ContextSection{
		{ID: "a", Relevance: 0.9, Source: model.SourceRAG, Evidence: model.SectionEvidence{QueryTerms: []string{"auth"}}},
		{ID: "b", Relevance: 0.7, Source: model.SourceKAG, Evidence: model.SectionEvidence{QueryTerms: []string{"login"}}},
		{ID: "c", Relevance: 0.5, Source: model.SourceGraphRAG},
	}
	out := Rerank(cfg, candidates)
	require.Len(t, out, 3)

	ids := make(map[string]bool)
	for i, r := range out {
		ids[r.Section.ID] = true
		require.Equal(t, i+1, r.Rank)
	}
	require.True(t, ids["a"] && ids["b"] && ids["c"])
}

func TestRerankHighestRelevanceRankedFirstWhenRatiosEqual(t *testing.T) {
	cfg := router.Config{Route: model.RouteMemory, RAGRatio: 1}
	candidates := []model.ContextSection{
		{ID: "low", Relevance: 0.2, Source: model.SourceRAG},
		{ID: "high", Relevance: 0.95, Source: model.SourceRAG},
	}
	out := Rerank(cfg, candidates)
	require.Equal(t, "high", out[0].Section.ID)
}

func TestRerankRouteBoostFavorsKAGOnCodeRoute(t *testing.T) {
	cfg := router.Config{Route: model.RouteCode, RAGRatio: 0.25, KAGRatio: 0.75}
	candidates := []model.ContextSection{
		{ID: "rag", Relevance: 0.6, Source: model.SourceRAG},
		{ID: "kag", Relevance: 0.6, Source: model.SourceKAG},
	}
	out := Rerank(cfg, candidates)
	require.Equal(t, "kag", out[0].Section.ID)
}

func TestRerankStreakPenaltyAppliedToThirdSameSourcePick(t *testing.T) {
	cfg := router.Config{Route: model.RouteHybrid, RAGRatio: 0.34, KAGRatio: 0.33, GraphRAGRatio: 0.33}
	candidates := []model.ContextSection{
		{ID: "rag1", Relevance: 0.81, Source: model.SourceRAG},
		{ID: "rag2", Relevance: 0.80, Source: model.SourceRAG},
		{ID: "rag3", Relevance: 0.79, Source: model.SourceRAG},
		{ID: "kag1", Relevance: 0.50, Source: model.SourceKAG},
	}
	out := Rerank(cfg, candidates)
	require.Len(t, out, 4)
	// rag3 is the third RAG pick in a row: 0.72*1 + 0.18*(0.34-1) - 0.05.
	require.Equal(t, "rag3", out[2].Section.ID)
	require.InDelta(t, 0.5512, out[2].Score, 1e-4)
}

func TestRerankBreakdownRoundedToFourDecimals(t *testing.T) {
	cfg := router.Config{Route: model.RouteMemory, RAGRatio: 1}
	candidates := []model.ContextSection{
		{ID: "a", Relevance: 0.333333, Source: model.SourceRAG},
	}
	out := Rerank(cfg, candidates)
	require.Len(t, out, 1)
	require.Equal(t, 1.0, out[0].Breakdown.Semantic)
}

func TestRenormalizeTargetSharesSumsToOne(t *testing.T) {
	shares := renormalizeTargetShares(router.Config{RAGRatio: 0.2, KAGRatio: 0.65, GraphRAGRatio: 0.15})
	sum := shares[model.SourceRAG] + shares[model.SourceKAG] + shares[model.SourceGraphRAG]
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestMaxOfGuardsAgainstZero(t *testing.T) {
	require.Equal(t, 1e-4, maxOf(nil))
	require.Equal(t, 1e-4, maxOf([]model.ContextSection{{Relevance: 0}}))
}
