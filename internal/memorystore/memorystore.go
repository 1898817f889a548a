// Package memorystore implements the relational half of the memory store
// named throughout spec.md §3–§4: CRUD for Memory rows, with the vector
// index (internal/vectorstore) holding the corresponding embedding under
// Memory.VectorID. Deleting a memory here is the single source of truth —
// callers must also delete its vector point.
package memorystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	_ "modernc.org/sqlite"
)

// Store is grounded on the teacher's key-value fact CRUD
// (internal/storage/surrealdb_facts.go: SaveFact/GetFact/UpdateFact/
// DeleteFact/ListFacts), generalized from a flat key/value pair to the
// richer Memory shape spec.md §3 describes.
type Store struct {
	db    *sql.DB
	owned bool
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	summary TEXT,
	importance REAL DEFAULT 0.5,
	tags TEXT,
	related_files TEXT,
	created_at DATETIME NOT NULL,
	accessed_at DATETIME NOT NULL,
	access_count INTEGER DEFAULT 0,
	vector_id TEXT,
	last_refreshed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
`

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memorystore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s, err := OpenWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// OpenWithDB applies the memory schema to an already-open handle, so it can
// share one sqlite file (and write connection) with codegraph and
// graphrag — see codegraph.OpenWithDB.
func OpenWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("memorystore: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying sqlite handle, unless it was opened
// elsewhere and shared in via OpenWithDB.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces a memory. RelatedFiles is truncated to
// model.MaxRelatedFiles (DESIGN.md Open Question #3) before it is
// persisted, so callers never need to enforce the cap themselves.
func (s *Store) Save(ctx context.Context, m model.Memory) error {
	if len(m.RelatedFiles) > model.MaxRelatedFiles {
		m.RelatedFiles = m.RelatedFiles[:model.MaxRelatedFiles]
	}
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return fmt.Errorf("memorystore: marshal tags: %w", err)
	}
	related, err := json.Marshal(m.RelatedFiles)
	if err != nil {
		return fmt.Errorf("memorystore: marshal related files: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, type, title, content, summary, importance, tags, related_files, created_at, accessed_at, access_count, vector_id, last_refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, title=excluded.title, content=excluded.content,
			summary=excluded.summary, importance=excluded.importance, tags=excluded.tags,
			related_files=excluded.related_files, vector_id=excluded.vector_id,
			last_refreshed_at=excluded.last_refreshed_at
	`, m.ID, string(m.Type), m.Title, m.Content, m.Summary, m.Importance, string(tags), string(related),
		m.CreatedAt, m.AccessedAt, m.AccessCount, m.VectorID, m.LastRefreshedAt)
	if err != nil {
		return fmt.Errorf("memorystore: save %s: %w", m.ID, err)
	}
	return nil
}

// Get fetches a memory by id without updating its access stats.
func (s *Store) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, title, content, summary, importance, tags, related_files, created_at, accessed_at, access_count, vector_id, last_refreshed_at
		FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memorystore: get %s: %w", id, err)
	}
	return m, nil
}

// GetMany fetches memories by id in a single query, preserving no
// particular order — callers that need ordering re-sort by id.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, type, title, content, summary, importance, tags, related_files, created_at, accessed_at, access_count, vector_id, last_refreshed_at
		FROM memories WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("memorystore: get many: %w", err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// TouchAccess bumps access_count and accessed_at, mirroring how the
// teacher's memory reads keep a recency/frequency signal for importance
// scoring.
func (s *Store) TouchAccess(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE memories SET access_count = access_count + 1, accessed_at = ? WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("memorystore: touch access %s: %w", id, err)
	}
	return nil
}

// ListByType returns every memory of the given type, most recently
// accessed first.
func (s *Store) ListByType(ctx context.Context, memType model.MemoryType) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, summary, importance, tags, related_files, created_at, accessed_at, access_count, vector_id, last_refreshed_at
		FROM memories WHERE type = ? ORDER BY accessed_at DESC`, string(memType))
	if err != nil {
		return nil, fmt.Errorf("memorystore: list by type %s: %w", memType, err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Delete removes a memory row. Callers are responsible for deleting the
// matching vector point via vectorstore.Store.DeleteByMemoryID — this store
// has no cross-package dependency on the vector index.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("memorystore: delete %s: %w", id, err)
	}
	return nil
}

// Count returns the total number of stored memories, for C13/C14 stats.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM memories`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("memorystore: count: %w", err)
	}
	return n, nil
}

type scanRow interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanRow) (*model.Memory, error) {
	var m model.Memory
	var typ string
	var tags, related sql.NullString
	var summary sql.NullString
	var vectorID sql.NullString
	var lastRefreshed sql.NullTime
	if err := row.Scan(&m.ID, &typ, &m.Title, &m.Content, &summary, &m.Importance, &tags, &related,
		&m.CreatedAt, &m.AccessedAt, &m.AccessCount, &vectorID, &lastRefreshed); err != nil {
		return nil, err
	}
	m.Type = model.MemoryType(typ)
	m.Summary = summary.String
	m.VectorID = vectorID.String
	if lastRefreshed.Valid {
		t := lastRefreshed.Time
		m.LastRefreshedAt = &t
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &m.Tags); err != nil {
			return nil, fmt.Errorf("memorystore: unmarshal tags: %w", err)
		}
	}
	if related.Valid && related.String != "" {
		if err := json.Unmarshal([]byte(related.String), &m.RelatedFiles); err != nil {
			return nil, fmt.Errorf("memorystore: unmarshal related files: %w", err)
		}
	}
	return &m, nil
}
