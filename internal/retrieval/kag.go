package retrieval

import (
	"context"
	"fmt"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
)

// KAGSource is the C8 adapter. It resolves a query against the code graph
// in two sub-stages: an entity sub-stage that looks up identifiers the
// query names directly, and a file-lookup sub-stage that scores candidate
// source files lexically and expands through the call/import graph.
//
// Grounded on the teacher's multi-file-per-concern layout (entities in one
// file, search in another) generalized to codegraph.Store.
type KAGSource struct {
	Graph *codegraph.Store
}

// Run implements spec.md §4.8: entity sub-stage first, then the
// file-lookup sub-stage when the query looks like a file lookup or the
// entity sub-stage found nothing.
func (k *KAGSource) Run(ctx context.Context, query string, limit int) ([]model.ContextSection, error) {
	sections, err := k.runEntitySubStage(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("kag source: entity stage: %w", err)
	}

	if fileLookupPattern.MatchString(query) || len(sections) == 0 {
		fileSections, err := k.runFileLookupSubStage(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("kag source: file-lookup stage: %w", err)
		}
		sections = append(sections, fileSections...)
	}

	if len(sections) > limit && limit > 0 {
		sections = sections[:limit]
	}
	return sections, nil
}
