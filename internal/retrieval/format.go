package retrieval

import (
	"fmt"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
)

// Template selects how much of each section's content the formatter
// emits.
type Template string

const (
	TemplateDefault  Template = "default"
	TemplateCompact  Template = "compact"
	TemplateDetailed Template = "detailed"
)

var sectionHeadings = map[model.ContextSourceTag]string{
	model.SourceRAG:      "## Relevant Memories",
	model.SourceGraphRAG: "## Knowledge Graph Insights",
	model.SourceKAG:      "## Code Relationships",
}

// sectionGroupOrder fixes heading emission order: memories, then graph
// insights, then code relationships.
var sectionGroupOrder = []model.ContextSourceTag{model.SourceRAG, model.SourceGraphRAG, model.SourceKAG}

// Format renders the markdown context document for query from the
// display-ordered, included sections, per spec.md §4.12.
func Format(query string, sections []model.ContextSection, tmpl Template) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Context for: %s\n", query)

	grouped := make(map[model.ContextSourceTag][]model.ContextSection)
	for _, s := range sections {
		grouped[s.Source] = append(grouped[s.Source], s)
	}

	for _, source := range sectionGroupOrder {
		group := grouped[source]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s\n\n", sectionHeadings[source])
		for _, s := range group {
			fmt.Fprintf(&sb, "### %s\n\n", s.Title)
			sb.WriteString(renderContent(s, tmpl))
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// renderContent applies the template: compact keeps only the first
// content line of RAG sections; detailed and default emit full content.
func renderContent(s model.ContextSection, tmpl Template) string {
	if tmpl == TemplateCompact && s.Source == model.SourceRAG {
		if idx := strings.IndexByte(s.Content, '\n'); idx >= 0 {
			return s.Content[:idx]
		}
		return s.Content
	}
	return s.Content
}

// EvidenceRecord is the per-candidate audit record spec.md §4.12 requires
// when includeEvidence is set: one entry for every reranked candidate,
// selected or not.
type EvidenceRecord struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Source            model.ContextSourceTag `json:"source"`
	Rank              int              `json:"rank"`
	Relevance         float64          `json:"relevance"`
	RerankerScore     *float64         `json:"rerankerScore,omitempty"`
	RerankerBreakdown *RerankBreakdown `json:"rerankerBreakdown,omitempty"`
	Tokens            int              `json:"tokens"`
	Included          bool             `json:"included"`
	ExclusionReason   string           `json:"exclusionReason,omitempty"`
	Reason            string           `json:"reason"`
	QueryTerms        []string         `json:"queryTerms"`
	MemoryID          string           `json:"memory,omitempty"`
	CodeNodeID        string           `json:"code,omitempty"`
	EntityID          string           `json:"graph,omitempty"`
}

// BuildEvidence converts packed candidates into the evidence records the
// API response returns when includeEvidence is requested.
func BuildEvidence(packed []PackedSection) []EvidenceRecord {
	out := make([]EvidenceRecord, 0, len(packed))
	for _, p := range packed {
		section := p.Reranked.Section
		score := p.Reranked.Score
		breakdown := p.Reranked.Breakdown
		out = append(out, EvidenceRecord{
			ID:                section.ID,
			Title:             section.Title,
			Source:            section.Source,
			Rank:              p.Reranked.Rank,
			Relevance:         section.Relevance,
			RerankerScore:     &score,
			RerankerBreakdown: &breakdown,
			Tokens:            section.Tokens,
			Included:          p.Included,
			ExclusionReason:   p.ExclusionReason,
			Reason:            section.Evidence.Reason,
			QueryTerms:        section.Evidence.QueryTerms,
			MemoryID:          section.Evidence.MemoryID,
			CodeNodeID:        section.Evidence.CodeNodeID,
			EntityID:          section.Evidence.EntityID,
		})
	}
	return out
}
