package retrieval

import (
	"sort"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
)

// formattingOverheadTokens is the fixed reserve spec.md §4.11 carves out of
// the token budget for markdown headers/grouping before any section is
// considered.
const formattingOverheadTokens = 200

// PackedSection is one evidence-tracked candidate after budget packing:
// every candidate from the reranker appears exactly once, selected or not.
type PackedSection struct {
	Reranked        RerankedSection
	Included        bool
	ExclusionReason string
}

// Pack implements the C11 budget packer: walk the reranker order, include
// a section iff its tokens strictly fit the remaining budget. Skipped
// sections are kept (not dropped) with exclusionReason "token_budget" so
// the evidence record still reports every candidate's rank.
func Pack(ranked []RerankedSection, tokenBudget int) []PackedSection {
	remaining := tokenBudget - formattingOverheadTokens
	out := make([]PackedSection, 0, len(ranked))
	for _, r := range ranked {
		if remaining >= 0 && r.Section.Tokens <= remaining {
			out = append(out, PackedSection{Reranked: r, Included: true})
			remaining -= r.Section.Tokens
			continue
		}
		out = append(out, PackedSection{Reranked: r, Included: false, ExclusionReason: "token_budget"})
	}
	return out
}

// displayOrderIndex fixes the source ordering Pack's DisplayOrder uses:
// rag, then graphrag, then kag.
var displayOrderIndex = map[model.ContextSourceTag]int{
	model.SourceRAG:      0,
	model.SourceGraphRAG: 1,
	model.SourceKAG:      2,
}

// DisplayOrder returns the included sections from packed, ordered by
// source (rag, graphrag, kag) then by descending relevance — a display
// order for the formatter, not a ranking.
func DisplayOrder(packed []PackedSection) []model.ContextSection {
	var included []PackedSection
	for _, p := range packed {
		if p.Included {
			included = append(included, p)
		}
	}
	sort.SliceStable(included, func(i, j int) bool {
		si, sj := included[i].Reranked.Section, included[j].Reranked.Section
		oi, oj := displayOrderIndex[si.Source], displayOrderIndex[sj.Source]
		if oi != oj {
			return oi < oj
		}
		return si.Relevance > sj.Relevance
	})
	out := make([]model.ContextSection, len(included))
	for i, p := range included {
		out[i] = p.Reranked.Section
	}
	return out
}
