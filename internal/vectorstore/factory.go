package vectorstore

import (
	"context"
	"fmt"
)

// Backend names accepted by CTXENG_VECTOR_BACKEND (spec.md §6).
const (
	BackendSurrealDB = "surrealdb"
	BackendQdrant    = "qdrant"
	BackendPgvector  = "pgvector"
)

// Config carries the subset of settings any backend might need; unused
// fields are ignored by backends that don't need them.
type Config struct {
	Backend          string
	Dimension        int
	SurrealURL       string
	SurrealNS        string
	SurrealDB        string
	SurrealUser      string
	SurrealPass      string
	QdrantAddr       string
	QdrantCollection string
	PgDSN            string
}

// New builds the configured Store backend, mirroring the teacher's
// pkg/embedder/factory.go priority-selection idiom but driven by an
// explicit backend name instead of presence probing.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSurrealDB, "":
		return NewSurrealDBStore(ctx, cfg.SurrealURL, cfg.SurrealNS, cfg.SurrealDB, cfg.SurrealUser, cfg.SurrealPass, cfg.Dimension)
	case BackendQdrant:
		return NewQdrantStore(cfg.QdrantAddr, cfg.QdrantCollection, uint64(cfg.Dimension))
	case BackendPgvector:
		return NewPgVectorStore(ctx, cfg.PgDSN)
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", cfg.Backend)
	}
}
