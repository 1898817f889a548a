// Package retrieval implements the C7–C14 retrieval pipeline: the three
// candidate sources (RAG, KAG, GraphRAG), the hybrid reranker, the budget
// packer, the markdown formatter/evidence builder, the result cache, and
// the benchmark harness, wired together by Engine.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/memorystore"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/tokenizer"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

// EmbedQueryer is the minimal embedding surface C7/C9 need; satisfied by
// *embedclient.Client.
type EmbedQueryer interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RAGSource is the C7 adapter: vector search over memories, grounded on the
// teacher's searchVectorsHandler/SearchSimilar round trip in
// pkg/mcp_tools/vector_tools.go.
type RAGSource struct {
	Vectors   vectorstore.Store
	Memories  *memorystore.Store
	Embedder  EmbedQueryer
}

// Run embeds query, searches the vector store with the caller's filters,
// skips hits that carry no memory id, and emits one ContextSection per
// remaining hit whose memory row still exists.
func (r *RAGSource) Run(ctx context.Context, query string, filters vectorstore.Filters, limit int) ([]model.ContextSection, error) {
	if limit <= 0 {
		return nil, nil
	}
	vec, err := r.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	hits, err := r.Vectors.Search(ctx, vec, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search: %w", err)
	}

	queryTerms := tokenizer.ExtractQueryTerms(query)
	var sections []model.ContextSection
	for _, hit := range hits {
		if hit.MemoryID == "" {
			continue // entity-payload point, not a memory (shared collection)
		}
		mem, err := r.Memories.Get(ctx, hit.MemoryID)
		if err != nil {
			return nil, fmt.Errorf("rag: load memory %s: %w", hit.MemoryID, err)
		}
		if mem == nil {
			continue // vector point outlived its owning row; skip rather than fail the whole request
		}

		content := formatMemoryContent(*mem)
		matched := tokenizer.FindMatchedTerms(queryTerms, []string{mem.Title, mem.Content, mem.Summary})

		var reason strings.Builder
		fmt.Fprintf(&reason, "semantic score %.4f", hit.Score)
		if len(matched) > 0 {
			fmt.Fprintf(&reason, ", matched terms %s", strings.Join(matched, ", "))
		}
		fmt.Fprintf(&reason, ", memory type %s", mem.Type)

		sections = append(sections, model.ContextSection{
			ID:        mem.ID,
			Title:     mem.Title,
			Content:   content,
			Tokens:    tokenizer.CountTokens(content),
			Relevance: hit.Score,
			Source:    model.SourceRAG,
			Evidence: model.SectionEvidence{
				Reason:     reason.String(),
				QueryTerms: matched,
				MemoryID:   mem.ID,
			},
		})
	}
	return sections, nil
}

func formatMemoryContent(m model.Memory) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n\n", m.Title, m.Type)
	if m.Summary != "" {
		sb.WriteString(m.Summary)
	} else {
		content := m.Content
		if len(content) > 300 {
			content = content[:300]
		}
		sb.WriteString(content)
	}
	if len(m.Tags) > 0 {
		fmt.Fprintf(&sb, "\n\nTags: %s", strings.Join(m.Tags, ", "))
	}
	fmt.Fprintf(&sb, "\n\nImportance: %.0f%%", m.Importance*100)
	return sb.String()
}
