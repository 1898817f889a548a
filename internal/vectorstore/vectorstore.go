// Package vectorstore defines the C2 Vector Store Adapter contract (spec.md
// §4.2) and its three interchangeable backends.
package vectorstore

import "context"

// Filters restricts a Search to points whose payload matches every supplied
// field (conjunction).
type Filters struct {
	Type         string
	Tags         []string
	RelatedFiles []string
}

// Empty reports whether no filter field is set.
func (f Filters) Empty() bool {
	return f.Type == "" && len(f.Tags) == 0 && len(f.RelatedFiles) == 0
}

// Payload is the typed metadata carried alongside a vector point.
type Payload struct {
	MemoryID     string
	EntityID     string
	Type         string
	Title        string
	Tags         []string
	RelatedFiles []string
	Importance   float64
}

// SearchHit is a single vector search result. Score is cosine similarity;
// implementations MAY rescale to [0,1] but MUST stay monotonic (spec.md
// §4.2, Open Question #1 in DESIGN.md).
type SearchHit struct {
	ID       string
	MemoryID string
	Payload  Payload
	Score    float64
}

// CollectionInfo reports point/vector counts for operational visibility.
type CollectionInfo struct {
	VectorsCount int64
	PointsCount  int64
}

// Store is the C2 contract. Every adapter (SurrealDB, Qdrant, pgvector) must
// satisfy it identically so C7/C9 are backend-agnostic.
type Store interface {
	Initialize(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, payload Payload) error
	Search(ctx context.Context, vector []float32, filters Filters, limit int) ([]SearchHit, error)
	Delete(ctx context.Context, id string) error
	DeleteByMemoryID(ctx context.Context, memoryID string) error
	GetCollectionInfo(ctx context.Context) (CollectionInfo, error)
	Close() error
}

// matchFilters applies the conjunction filter rule shared by every backend
// that cannot push all of Filters down into its native query language.
func matchFilters(f Filters, p Payload) bool {
	if f.Type != "" && f.Type != p.Type {
		return false
	}
	if len(f.Tags) > 0 && !containsAny(p.Tags, f.Tags) {
		return false
	}
	if len(f.RelatedFiles) > 0 && !containsAny(p.RelatedFiles, f.RelatedFiles) {
		return false
	}
	return true
}

func containsAny(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
