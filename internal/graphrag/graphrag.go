// Package graphrag implements the C4 GraphRAG Store (spec.md §4.4):
// entities, relationships, communities, community reports, and the
// entity-memory link table C9 uses to pull memories attached to an entity.
package graphrag

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	_ "modernc.org/sqlite"
)

// Store is the C4 adapter, grounded on the teacher's entity/relationship
// shape in internal/storage/surrealdb_entities.go (CreateEntity,
// CreateRelationship, TraverseGraph) and dan-solli-gognee's sqlite schema
// conventions, ported to modernc.org/sqlite for a single embedded database
// shared with C3.
type Store struct {
	db    *sql.DB
	owned bool
}

const schema = `
CREATE TABLE IF NOT EXISTS graph_entities (
	id TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL COLLATE NOCASE,
	entity_type TEXT NOT NULL,
	description TEXT,
	mention_count INTEGER DEFAULT 1,
	extraction_confidence REAL DEFAULT 1.0,
	first_seen_at DATETIME NOT NULL,
	last_seen_at DATETIME NOT NULL,
	embedding_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_entities_name ON graph_entities(canonical_name);

CREATE TABLE IF NOT EXISTS relationships (
	id TEXT PRIMARY KEY,
	source_entity_id TEXT NOT NULL,
	target_entity_id TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	strength REAL DEFAULT 1.0,
	description TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rel_source ON relationships(source_entity_id);
CREATE INDEX IF NOT EXISTS idx_rel_target ON relationships(target_entity_id);

CREATE TABLE IF NOT EXISTS communities (
	id TEXT PRIMARY KEY,
	level INTEGER NOT NULL,
	parent_id TEXT,
	entity_count INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS community_members (
	community_id TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	PRIMARY KEY (community_id, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_members_entity ON community_members(entity_id);

CREATE TABLE IF NOT EXISTS reports (
	community_id TEXT PRIMARY KEY,
	title TEXT,
	summary TEXT,
	full_content TEXT,
	key_findings TEXT,
	rating REAL
);

CREATE TABLE IF NOT EXISTS entity_memories (
	entity_id TEXT NOT NULL,
	memory_id TEXT NOT NULL,
	confidence REAL DEFAULT 1.0,
	PRIMARY KEY (entity_id, memory_id)
);
CREATE INDEX IF NOT EXISTS idx_entity_memories_memory ON entity_memories(memory_id);
`

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("graphrag: open %s: %w", path, err)
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

// OpenWithDB applies the GraphRAG schema to an already-open handle, so it
// can share one sqlite file (and write connection) with codegraph and
// memorystore — see codegraph.OpenWithDB.
func OpenWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("graphrag: apply schema: %w", err)
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

// UpsertEntity inserts or updates an entity, bumping mention_count and
// last_seen_at on conflict like the teacher's CreateEntity does for
// repeated mentions.
func (s *Store) UpsertEntity(ctx context.Context, e model.GraphEntity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO graph_entities (id, canonical_name, entity_type, description, mention_count, extraction_confidence, first_seen_at, last_seen_at, embedding_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description=excluded.description,
			mention_count=graph_entities.mention_count + 1,
			extraction_confidence=excluded.extraction_confidence,
			last_seen_at=excluded.last_seen_at,
			embedding_id=excluded.embedding_id
	`, e.ID, e.CanonicalName, string(e.EntityType), e.Description, e.MentionCount, e.ExtractionConfidence, e.FirstSeenAt, e.LastSeenAt, e.EmbeddingID)
	if err != nil {
		return fmt.Errorf("graphrag: upsert entity %s: %w", e.ID, err)
	}
	return nil
}

// FindEntityByName resolves a canonical name to an entity,
// case-insensitively. Aliases are not matched.
func (s *Store) FindEntityByName(ctx context.Context, name string) (*model.GraphEntity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_name, entity_type, description, mention_count, extraction_confidence, first_seen_at, last_seen_at, embedding_id
		FROM graph_entities WHERE canonical_name = ? COLLATE NOCASE`, name)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graphrag: find entity by name %s: %w", name, err)
	}
	return e, nil
}

func (s *Store) GetEntity(ctx context.Context, id string) (*model.GraphEntity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_name, entity_type, description, mention_count, extraction_confidence, first_seen_at, last_seen_at, embedding_id
		FROM graph_entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graphrag: get entity %s: %w", id, err)
	}
	return e, nil
}

// CountEntities reports whether the graph has any entities at all, so C9
// can skip straight to "emit nothing" per spec.md §4.9.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM graph_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("graphrag: count entities: %w", err)
	}
	return n, nil
}

// FindEntitiesByTerms does a lexical LIKE search over canonical_name and
// description, for C9's lexical-fallback stage. excludeIDs are omitted
// from the result (already-selected vector hits).
func (s *Store) FindEntitiesByTerms(ctx context.Context, terms []string, excludeIDs map[string]struct{}) ([]model.GraphEntity, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*2)
	for _, t := range terms {
		clauses = append(clauses, "(canonical_name LIKE ? OR description LIKE ?)")
		like := "%" + t + "%"
		args = append(args, like, like)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, canonical_name, entity_type, description, mention_count, extraction_confidence, first_seen_at, last_seen_at, embedding_id
		FROM graph_entities WHERE %s`, strings.Join(clauses, " OR ")), args...)
	if err != nil {
		return nil, fmt.Errorf("graphrag: find entities by terms: %w", err)
	}
	defer rows.Close()

	var out []model.GraphEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		if _, skip := excludeIDs[e.ID]; skip {
			continue
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertRelationship(ctx context.Context, r model.Relationship) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, source_entity_id, target_entity_id, relationship_type, strength, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET strength=excluded.strength, description=excluded.description
	`, r.ID, r.SourceEntityID, r.TargetEntityID, r.RelationshipType, r.Strength, r.Description, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("graphrag: upsert relationship %s: %w", r.ID, err)
	}
	return nil
}

// RelationshipsForEntity returns every relationship touching entityID in
// either direction.
func (s *Store) RelationshipsForEntity(ctx context.Context, entityID string) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_entity_id, target_entity_id, relationship_type, strength, description, created_at
		FROM relationships WHERE source_entity_id = ? OR target_entity_id = ?
		ORDER BY strength DESC
	`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("graphrag: relationships for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &r.RelationshipType, &r.Strength, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExpandEntities does a bounded-depth bidirectional expansion from a seed
// set of entity IDs, following relationships, matching TraverseGraph's
// shape but over the sqlite relationship table instead of SurrealDB graph
// edges.
func (s *Store) ExpandEntities(ctx context.Context, seedIDs []string, depth int) ([]model.GraphEntity, error) {
	if len(seedIDs) == 0 {
		return nil, nil
	}
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}
	visited := make(map[string]struct{}, len(seedIDs))
	frontier := append([]string(nil), seedIDs...)
	for _, id := range seedIDs {
		visited[id] = struct{}{}
	}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		next := make(map[string]struct{})
		for _, id := range frontier {
			rels, err := s.RelationshipsForEntity(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, r := range rels {
				for _, candidate := range []string{r.SourceEntityID, r.TargetEntityID} {
					if candidate == id {
						continue
					}
					if _, seen := visited[candidate]; !seen {
						next[candidate] = struct{}{}
					}
				}
			}
		}
		frontier = frontier[:0]
		for id := range next {
			visited[id] = struct{}{}
			frontier = append(frontier, id)
		}
	}

	var out []model.GraphEntity
	for id := range visited {
		e, err := s.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *Store) UpsertCommunity(ctx context.Context, c model.Community, memberEntityIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphrag: begin community tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO communities (id, level, parent_id, entity_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET level=excluded.level, parent_id=excluded.parent_id, entity_count=excluded.entity_count
	`, c.ID, c.Level, c.ParentID, c.EntityCount)
	if err != nil {
		return fmt.Errorf("graphrag: upsert community %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM community_members WHERE community_id = ?`, c.ID); err != nil {
		return err
	}
	for _, eid := range memberEntityIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO community_members (community_id, entity_id) VALUES (?, ?)`, c.ID, eid); err != nil {
			return fmt.Errorf("graphrag: link community member %s: %w", eid, err)
		}
	}
	return tx.Commit()
}

// CommunitiesForEntity returns every community an entity belongs to.
func (s *Store) CommunitiesForEntity(ctx context.Context, entityID string) ([]model.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.level, c.parent_id, c.entity_count
		FROM communities c
		JOIN community_members m ON m.community_id = c.id
		WHERE m.entity_id = ?
		ORDER BY c.level ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("graphrag: communities for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []model.Community
	for rows.Next() {
		var c model.Community
		var parentID sql.NullString
		if err := rows.Scan(&c.ID, &c.Level, &parentID, &c.EntityCount); err != nil {
			return nil, err
		}
		c.ParentID = parentID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertReport(ctx context.Context, r model.Report) error {
	findings := joinFindings(r.KeyFindings)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (community_id, title, summary, full_content, key_findings, rating)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(community_id) DO UPDATE SET
			title=excluded.title, summary=excluded.summary, full_content=excluded.full_content,
			key_findings=excluded.key_findings, rating=excluded.rating
	`, r.CommunityID, r.Title, r.Summary, r.FullContent, findings, r.Rating)
	if err != nil {
		return fmt.Errorf("graphrag: upsert report %s: %w", r.CommunityID, err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, communityID string) (*model.Report, error) {
	var r model.Report
	var findings string
	err := s.db.QueryRowContext(ctx, `
		SELECT community_id, title, summary, full_content, key_findings, rating
		FROM reports WHERE community_id = ?`, communityID).
		Scan(&r.CommunityID, &r.Title, &r.Summary, &r.FullContent, &findings, &r.Rating)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graphrag: get report %s: %w", communityID, err)
	}
	r.KeyFindings = splitFindings(findings)
	return &r, nil
}

// LinkEntityMemory records that memoryID mentions or was derived from
// entityID with the given link confidence, so C9 can pull memories
// attached to an expanded entity set sorted by confidence.
func (s *Store) LinkEntityMemory(ctx context.Context, entityID, memoryID string, confidence float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_memories (entity_id, memory_id, confidence) VALUES (?, ?, ?)
		ON CONFLICT(entity_id, memory_id) DO UPDATE SET confidence = excluded.confidence
	`, entityID, memoryID, confidence)
	if err != nil {
		return fmt.Errorf("graphrag: link entity %s to memory %s: %w", entityID, memoryID, err)
	}
	return nil
}

// MemoriesForEntity returns the memory ids linked to a single entity,
// ordered by link confidence descending (spec.md §4.9).
func (s *Store) MemoriesForEntity(ctx context.Context, entityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id FROM entity_memories WHERE entity_id = ? ORDER BY confidence DESC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("graphrag: memories for entity %s: %w", entityID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MemoriesForEntities returns the distinct set of memory IDs linked to any
// of the given entities.
func (s *Store) MemoriesForEntities(ctx context.Context, entityIDs []string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(entityIDs)*2)
	args := make([]interface{}, 0, len(entityIDs))
	for i, id := range entityIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT memory_id FROM entity_memories WHERE entity_id IN (%s)
	`, string(placeholders)), args...)
	if err != nil {
		return nil, fmt.Errorf("graphrag: memories for entities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanRow interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row scanRow) (*model.GraphEntity, error) {
	var e model.GraphEntity
	var typ string
	var embeddingID sql.NullString
	if err := row.Scan(&e.ID, &e.CanonicalName, &typ, &e.Description, &e.MentionCount, &e.ExtractionConfidence, &e.FirstSeenAt, &e.LastSeenAt, &embeddingID); err != nil {
		return nil, err
	}
	e.EntityType = model.EntityType(typ)
	e.EmbeddingID = embeddingID.String
	return &e, nil
}

func joinFindings(findings []string) string {
	if len(findings) == 0 {
		return ""
	}
	out := findings[0]
	for _, f := range findings[1:] {
		out += "\x1f" + f
	}
	return out
}

func splitFindings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1f' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
