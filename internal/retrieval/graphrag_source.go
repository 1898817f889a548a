package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/graphrag"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/tokenizer"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

const (
	graphragMinCombinedScore = 0.18
	graphragMinLexicalScore  = 0.2
)

// GraphRAGSource is the C9 adapter, grounded on the teacher's entity CRUD
// (surrealdb_entities.go) generalized to a two-stage vector+lexical search
// over internal/graphrag.Store.
type GraphRAGSource struct {
	Graph    *graphrag.Store
	Vectors  vectorstore.Store
	Embedder EmbedQueryer
}

type entityCandidate struct {
	entity       model.GraphEntity
	vectorScore  float64
	lexicalScore float64
}

func (c entityCandidate) combinedScore() float64 {
	return 0.7*c.vectorScore + 0.3*c.lexicalScore
}

// Run implements spec.md §4.9's two-stage entity search.
func (g *GraphRAGSource) Run(ctx context.Context, query string, limit int) ([]model.ContextSection, error) {
	if limit <= 0 {
		return nil, nil
	}
	count, err := g.Graph.CountEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphrag source: count entities: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	terms := tokenizer.ExtractQueryTerms(query)
	candidates := make(map[string]*entityCandidate)

	vec, err := g.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("graphrag source: embed query: %w", err)
	}
	hits, err := g.Vectors.Search(ctx, vec, vectorstore.Filters{}, limit)
	if err != nil {
		return nil, fmt.Errorf("graphrag source: vector search: %w", err)
	}
	for _, hit := range hits {
		if hit.Payload.EntityID == "" {
			continue
		}
		entity, err := g.Graph.GetEntity(ctx, hit.Payload.EntityID)
		if err != nil {
			return nil, fmt.Errorf("graphrag source: get entity %s: %w", hit.Payload.EntityID, err)
		}
		if entity == nil {
			continue
		}
		lex := lexicalEntityScore(*entity, terms)
		cand := &entityCandidate{entity: *entity, vectorScore: hit.Score, lexicalScore: lex}
		if cand.combinedScore() >= graphragMinCombinedScore {
			candidates[entity.ID] = cand
		}
	}

	excluded := make(map[string]struct{}, len(candidates))
	for id := range candidates {
		excluded[id] = struct{}{}
	}
	fallback, err := g.Graph.FindEntitiesByTerms(ctx, terms, excluded)
	if err != nil {
		return nil, fmt.Errorf("graphrag source: lexical fallback: %w", err)
	}
	for _, entity := range fallback {
		lex := lexicalEntityScore(entity, terms)
		if lex >= graphragMinLexicalScore {
			candidates[entity.ID] = &entityCandidate{entity: entity, lexicalScore: lex}
		}
	}

	ordered := make([]*entityCandidate, 0, len(candidates))
	for _, c := range candidates {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].combinedScore() > ordered[j].combinedScore() })
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	var sections []model.ContextSection
	for _, c := range ordered {
		section, err := g.buildSection(ctx, c, terms)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func (g *GraphRAGSource) buildSection(ctx context.Context, c *entityCandidate, queryTerms []string) (model.ContextSection, error) {
	rels, err := g.Graph.RelationshipsForEntity(ctx, c.entity.ID)
	if err != nil {
		return model.ContextSection{}, fmt.Errorf("graphrag source: relationships for %s: %w", c.entity.ID, err)
	}
	if len(rels) > 8 {
		rels = rels[:8]
	}

	communities, err := g.Graph.CommunitiesForEntity(ctx, c.entity.ID)
	if err != nil {
		return model.ContextSection{}, fmt.Errorf("graphrag source: communities for %s: %w", c.entity.ID, err)
	}
	if len(communities) > 3 {
		communities = communities[:3]
	}

	var reportSummary string
	var communityPrefixes []string
	for _, comm := range communities {
		communityPrefixes = append(communityPrefixes, comm.ShortID())
		if reportSummary != "" {
			continue
		}
		report, err := g.Graph.GetReport(ctx, comm.ID)
		if err != nil {
			return model.ContextSection{}, fmt.Errorf("graphrag source: report for %s: %w", comm.ID, err)
		}
		if report != nil {
			reportSummary = truncate(report.Summary, 220)
		}
	}

	memoryIDs, err := g.Graph.MemoriesForEntity(ctx, c.entity.ID)
	if err != nil {
		return model.ContextSection{}, fmt.Errorf("graphrag source: memories for %s: %w", c.entity.ID, err)
	}
	if len(memoryIDs) > 8 {
		memoryIDs = memoryIDs[:8]
	}

	var content strings.Builder
	fmt.Fprintf(&content, "**%s** (%s)\n", c.entity.CanonicalName, c.entity.EntityType)
	if c.entity.Description != "" {
		fmt.Fprintf(&content, "\n%s\n", c.entity.Description)
	}
	if len(rels) > 0 {
		content.WriteString("\nRelationships:\n")
		for _, r := range rels {
			fmt.Fprintf(&content, "- %s (strength %.1f)\n", r.RelationshipType, r.Strength)
		}
	}
	if reportSummary != "" {
		fmt.Fprintf(&content, "\nCommunity report: %s\n", reportSummary)
	}

	relevance := c.combinedScore()
	if relevance > 1 {
		relevance = 1
	}

	var reason strings.Builder
	fmt.Fprintf(&reason, "vector score %.4f, lexical score %.4f, %d relationships, %d memories",
		c.vectorScore, c.lexicalScore, len(rels), len(memoryIDs))
	if len(communityPrefixes) > 0 {
		fmt.Fprintf(&reason, ", communities %s", strings.Join(communityPrefixes, ", "))
	}

	matched := tokenizer.FindMatchedTerms(queryTerms, []string{c.entity.CanonicalName, c.entity.Description})

	return model.ContextSection{
		ID:        c.entity.ID,
		Title:     c.entity.CanonicalName,
		Content:   content.String(),
		Tokens:    tokenizer.CountTokens(content.String()),
		Relevance: relevance,
		Source:    model.SourceGraphRAG,
		Evidence: model.SectionEvidence{
			Reason:     reason.String(),
			QueryTerms: matched,
			EntityID:   c.entity.ID,
		},
	}, nil
}

// lexicalEntityScore is the fraction of query terms found in the entity's
// canonical name or description, a deliberately simple blend term since
// spec.md does not prescribe the exact lexical-score formula (see
// DESIGN.md Open Question resolution for C9).
func lexicalEntityScore(e model.GraphEntity, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(e.CanonicalName + " " + e.Description)
	matched := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
