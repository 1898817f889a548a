package retrieval

import (
	"strings"
	"testing"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func TestFormatGroupsSectionsByHeading(t *testing.T) {
	sections := []model.ContextSection{
		{ID: "m1", Title: "Decision: use sqlite", Content: "line one\nline two", Source: model.SourceRAG},
		{ID: "e1", Title: "Kubernetes", Content: "entity content", Source: model.SourceGraphRAG},
		{ID: "c1", Title: "Code: Foo", Content: "code content", Source: model.SourceKAG},
	}
	out := Format("how do we deploy", sections, TemplateDefault)
	require.True(t, strings.HasPrefix(out, "# Context for: how do we deploy\n"))

	memIdx := strings.Index(out, "## Relevant Memories")
	graphIdx := strings.Index(out, "## Knowledge Graph Insights")
	codeIdx := strings.Index(out, "## Code Relationships")
	require.True(t, memIdx >= 0 && graphIdx > memIdx && codeIdx > graphIdx)
}

func TestFormatCompactTruncatesRAGToFirstLine(t *testing.T) {
	sections := []model.ContextSection{
		{ID: "m1", Title: "Decision", Content: "first line\nsecond line", Source: model.SourceRAG},
	}
	out := Format("q", sections, TemplateCompact)
	require.Contains(t, out, "first line")
	require.NotContains(t, out, "second line")
}

func TestFormatDetailedKeepsFullContent(t *testing.T) {
	sections := []model.ContextSection{
		{ID: "m1", Title: "Decision", Content: "first line\nsecond line", Source: model.SourceRAG},
	}
	out := Format("q", sections, TemplateDetailed)
	require.Contains(t, out, "second line")
}

func TestFormatOmitsEmptyGroups(t *testing.T) {
	sections := []model.ContextSection{
		{ID: "m1", Title: "Decision", Content: "x", Source: model.SourceRAG},
	}
	out := Format("q", sections, TemplateDefault)
	require.NotContains(t, out, "## Knowledge Graph Insights")
	require.NotContains(t, out, "## Code Relationships")
}

func TestBuildEvidenceIncludesAllCandidates(t *testing.T) {
	packed := []PackedSection{
		{Included: true, Reranked: RerankedSection{Section: model.ContextSection{ID: "a", Tokens: 10, Evidence: model.SectionEvidence{Reason: "r1"}}, Rank: 1, Score: 0.9}},
		{Included: false, ExclusionReason: "token_budget", Reranked: RerankedSection{Section: model.ContextSection{ID: "b", Tokens: 500}, Rank: 2, Score: 0.5}},
	}
	records := BuildEvidence(packed)
	require.Len(t, records, 2)
	require.True(t, records[0].Included)
	require.False(t, records[1].Included)
	require.Equal(t, "token_budget", records[1].ExclusionReason)
	require.Equal(t, "r1", records[0].Reason)
}
