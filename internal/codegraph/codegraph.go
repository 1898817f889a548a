// Package codegraph implements the C3 Code Graph Store (spec.md §4.3): a
// sqlite-backed relational store for CodeNode/CodeEdge/FileHash rows, with
// bounded-depth neighbor traversal for the call graph, dependency tree, and
// interface-implementation queries C8 (KAG) relies on.
package codegraph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	_ "modernc.org/sqlite"
)

// Store is the C3 adapter. Grounded on dan-solli-gognee's
// pkg/store/sqlite.go (schema shape, recursive-CTE neighbor traversal) and
// the teacher's surrealdb_code_symbols.go (node/edge field shape), ported to
// modernc.org/sqlite — the pure-Go driver already pulled in for C4.
type Store struct {
	db    *sql.DB
	owned bool
}

const schema = `
CREATE TABLE IF NOT EXISTS code_nodes (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	start_line INTEGER,
	end_line INTEGER,
	signature TEXT,
	summary TEXT,
	metadata TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_code_nodes_file ON code_nodes(file_path);
CREATE INDEX IF NOT EXISTS idx_code_nodes_name ON code_nodes(name);

CREATE TABLE IF NOT EXISTS code_edges (
	id TEXT PRIMARY KEY,
	from_node TEXT NOT NULL,
	to_node TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME NOT NULL,
	UNIQUE(from_node, to_node, edge_type)
);
CREATE INDEX IF NOT EXISTS idx_code_edges_from ON code_edges(from_node);
CREATE INDEX IF NOT EXISTS idx_code_edges_to ON code_edges(to_node);

CREATE TABLE IF NOT EXISTS file_hashes (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Open opens (or creates) the sqlite database at path and applies the
// schema. Writers are serialized via a single connection, matching the
// teacher's sqlite usage for any table touched by the file-watcher.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("codegraph: open %s: %w", path, err)
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

// OpenWithDB applies the code graph schema to an already-open handle. Used
// by cmd/ctxeng to share one *sql.DB (and its single write connection)
// across codegraph, graphrag and memorystore, since they all live in the
// same sqlite file.
func OpenWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("codegraph: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("codegraph: apply schema: %w", err)
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

// UpsertNode inserts or replaces a CodeNode.
func (s *Store) UpsertNode(ctx context.Context, n model.CodeNode) error {
	meta, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO code_nodes (id, type, name, file_path, start_line, end_line, signature, summary, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, name=excluded.name, file_path=excluded.file_path,
			start_line=excluded.start_line, end_line=excluded.end_line,
			signature=excluded.signature, summary=excluded.summary,
			metadata=excluded.metadata, updated_at=excluded.updated_at
	`, n.ID, string(n.Type), n.Name, n.FilePath, n.StartLine, n.EndLine, n.Signature, n.Summary, meta, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("codegraph: upsert node %s: %w", n.ID, err)
	}
	return nil
}

// UpsertEdge inserts or replaces a CodeEdge, keyed on (from, to, type).
func (s *Store) UpsertEdge(ctx context.Context, e model.CodeEdge) error {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO code_edges (id, from_node, to_node, edge_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_node, to_node, edge_type) DO UPDATE SET metadata=excluded.metadata
	`, e.ID, e.FromNode, e.ToNode, string(e.EdgeType), meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("codegraph: upsert edge %s->%s: %w", e.FromNode, e.ToNode, err)
	}
	return nil
}

// DeleteNodesForFile removes every node (and, via ON DELETE CASCADE-style
// manual cleanup, every edge touching them) that belongs to filePath. Used
// by the scanner's per-file transactional replace (C5).
func (s *Store) DeleteNodesForFile(ctx context.Context, filePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("codegraph: begin delete tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM code_nodes WHERE file_path = ?`, filePath)
	if err != nil {
		return fmt.Errorf("codegraph: select nodes for %s: %w", filePath, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM code_edges WHERE from_node = ? OR to_node = ?`, id, id); err != nil {
			return fmt.Errorf("codegraph: delete edges for %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM code_nodes WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("codegraph: delete nodes for %s: %w", filePath, err)
	}
	return tx.Commit()
}

// ReplaceFile atomically replaces every node and edge belonging to
// filePath with nodes/edges, in a single transaction — the scanner's
// per-file transactional replace spec.md §5 requires to preserve the
// edge-uniqueness invariant across a re-scan.
func (s *Store) ReplaceFile(ctx context.Context, filePath string, nodes []model.CodeNode, edges []model.CodeEdge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("codegraph: begin replace tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM code_nodes WHERE file_path = ?`, filePath)
	if err != nil {
		return fmt.Errorf("codegraph: select nodes for %s: %w", filePath, err)
	}
	var oldIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		oldIDs = append(oldIDs, id)
	}
	rows.Close()

	for _, id := range oldIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM code_edges WHERE from_node = ? OR to_node = ?`, id, id); err != nil {
			return fmt.Errorf("codegraph: delete edges for %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM code_nodes WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("codegraph: delete nodes for %s: %w", filePath, err)
	}

	for _, n := range nodes {
		meta, err := marshalMetadata(n.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO code_nodes (id, type, name, file_path, start_line, end_line, signature, summary, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type=excluded.type, name=excluded.name, file_path=excluded.file_path,
				start_line=excluded.start_line, end_line=excluded.end_line,
				signature=excluded.signature, summary=excluded.summary,
				metadata=excluded.metadata, updated_at=excluded.updated_at
		`, n.ID, string(n.Type), n.Name, n.FilePath, n.StartLine, n.EndLine, n.Signature, n.Summary, meta, n.CreatedAt, n.UpdatedAt); err != nil {
			return fmt.Errorf("codegraph: replace-insert node %s: %w", n.ID, err)
		}
	}

	// Edges whose target isn't a node in the graph are unresolved — spec.md
	// §5 says those are never persisted, only recorded in-memory by the
	// caller, so ReplaceFile silently skips them rather than writing a
	// dangling edge.
	for _, e := range edges {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM code_nodes WHERE id = ?`, e.ToNode).Scan(&exists)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("codegraph: check edge target %s: %w", e.ToNode, err)
		}
		meta, err := marshalMetadata(e.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO code_edges (id, from_node, to_node, edge_type, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(from_node, to_node, edge_type) DO UPDATE SET metadata=excluded.metadata
		`, e.ID, e.FromNode, e.ToNode, string(e.EdgeType), meta, e.CreatedAt); err != nil {
			return fmt.Errorf("codegraph: replace-insert edge %s->%s: %w", e.FromNode, e.ToNode, err)
		}
	}

	return tx.Commit()
}

// GetNode fetches a single node by id.
func (s *Store) GetNode(ctx context.Context, id string) (*model.CodeNode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, name, file_path, start_line, end_line, signature, summary, metadata, created_at, updated_at
		FROM code_nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("codegraph: get node %s: %w", id, err)
	}
	return n, nil
}

// FindNodesByName returns every node whose name matches exactly.
func (s *Store) FindNodesByName(ctx context.Context, name string) ([]model.CodeNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, file_path, start_line, end_line, signature, summary, metadata, created_at, updated_at
		FROM code_nodes WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("codegraph: find by name %s: %w", name, err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesByFilePathSuffix returns nodes whose file_path ends with suffix,
// used by C8's kebab-case/extension filename-variant probing.
func (s *Store) FindNodesByFilePathSuffix(ctx context.Context, suffix string) ([]model.CodeNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, file_path, start_line, end_line, signature, summary, metadata, created_at, updated_at
		FROM code_nodes WHERE file_path LIKE ?`, "%"+suffix)
	if err != nil {
		return nil, fmt.Errorf("codegraph: find by file path suffix %s: %w", suffix, err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllFilePaths returns the distinct set of file paths with at least one
// code node, for C8's lexical file-lookup candidate set.
func (s *Store) AllFilePaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM code_nodes`)
	if err != nil {
		return nil, fmt.Errorf("codegraph: all file paths: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FilePathCounts returns every distinct file_path with its node count, for
// C8's lexical scoring node-count bonus.
func (s *Store) FilePathCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, count(*) FROM code_nodes GROUP BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("codegraph: file path counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, err
		}
		out[path] = n
	}
	return out, rows.Err()
}

// FileEdgeWeights aggregates code_edges into a file-to-file adjacency,
// counting one weight unit per edge whose endpoints live in different
// files, for C8's graph-expansion-of-lexical-anchors step.
func (s *Store) FileEdgeWeights(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.file_path, b.file_path
		FROM code_edges e
		JOIN code_nodes a ON a.id = e.from_node
		JOIN code_nodes b ON b.id = e.to_node
		WHERE a.file_path != b.file_path
	`)
	if err != nil {
		return nil, fmt.Errorf("codegraph: file edge weights: %w", err)
	}
	defer rows.Close()
	out := make(map[string]map[string]int)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, err
		}
		if out[from] == nil {
			out[from] = make(map[string]int)
		}
		out[from][to]++
		if out[to] == nil {
			out[to] = make(map[string]int)
		}
		out[to][from]++
	}
	return out, rows.Err()
}

// Neighbors performs a bidirectional bounded-depth traversal from nodeID,
// grounded on dan-solli-gognee's GetNeighbors recursive CTE. depth is
// clamped to [1,5] per spec.md §4.3; SQLite's recursive CTE has no native
// cycle guard, so the starting node is excluded via the final WHERE and the
// depth bound itself prevents unbounded recursion on cyclic call graphs.
func (s *Store) Neighbors(ctx context.Context, nodeID string, depth int) ([]model.CodeNode, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE graph_traversal(node_id, depth_level) AS (
			SELECT ? AS node_id, 0 AS depth_level
			UNION
			SELECT
				CASE WHEN e.from_node = gt.node_id THEN e.to_node ELSE e.from_node END,
				gt.depth_level + 1
			FROM graph_traversal gt
			JOIN code_edges e ON (e.from_node = gt.node_id OR e.to_node = gt.node_id)
			WHERE gt.depth_level < ?
		)
		SELECT DISTINCT n.id, n.type, n.name, n.file_path, n.start_line, n.end_line, n.signature, n.summary, n.metadata, n.created_at, n.updated_at
		FROM graph_traversal gt
		JOIN code_nodes n ON gt.node_id = n.id
		WHERE gt.node_id != ?
	`, nodeID, depth, nodeID)
	if err != nil {
		return nil, fmt.Errorf("codegraph: neighbors of %s: %w", nodeID, err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Direction selects which way a directed traversal follows edges.
type Direction int

const (
	DirectionForward Direction = iota // follows edges from -> to (e.g. "calls")
	DirectionReverse                  // follows edges to -> from (e.g. "called by")
	DirectionBoth
)

// CallGraph returns every node reachable by following "calls" edges from
// nodeID up to depth hops, in the given direction.
func (s *Store) CallGraph(ctx context.Context, nodeID string, depth int, dir Direction) ([]model.CodeNode, error) {
	return s.directedTraversal(ctx, nodeID, model.EdgeCalls, depth, dir)
}

// DependencyTree mirrors CallGraph over "imports" edges; DirectionReverse
// is the spec's "importedBy".
func (s *Store) DependencyTree(ctx context.Context, nodeID string, depth int, dir Direction) ([]model.CodeNode, error) {
	return s.directedTraversal(ctx, nodeID, model.EdgeImports, depth, dir)
}

// Callers returns the one-hop set of nodes with a "calls" edge into
// nodeID.
func (s *Store) Callers(ctx context.Context, nodeID string) ([]model.CodeNode, error) {
	return s.CallGraph(ctx, nodeID, 1, DirectionReverse)
}

// Callees returns the one-hop set of nodes nodeID calls.
func (s *Store) Callees(ctx context.Context, nodeID string) ([]model.CodeNode, error) {
	return s.CallGraph(ctx, nodeID, 1, DirectionForward)
}

// FindImplementations returns every node with an "implements" or "extends"
// edge pointing at nodeID (one hop, direction fixed regardless of depth).
func (s *Store) FindImplementations(ctx context.Context, nodeID string) ([]model.CodeNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.type, n.name, n.file_path, n.start_line, n.end_line, n.signature, n.summary, n.metadata, n.created_at, n.updated_at
		FROM code_edges e
		JOIN code_nodes n ON n.id = e.from_node
		WHERE e.to_node = ? AND e.edge_type IN (?, ?)
	`, nodeID, string(model.EdgeImplements), string(model.EdgeExtends))
	if err != nil {
		return nil, fmt.Errorf("codegraph: find implementations of %s: %w", nodeID, err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *Store) directedTraversal(ctx context.Context, nodeID string, edgeType model.CodeEdgeType, depth int, dir Direction) ([]model.CodeNode, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}
	var joinCond string
	switch dir {
	case DirectionReverse:
		joinCond = "e.to_node = gt.node_id AND e.edge_type = ?"
	case DirectionBoth:
		joinCond = "(e.from_node = gt.node_id OR e.to_node = gt.node_id) AND e.edge_type = ?"
	default:
		joinCond = "e.from_node = gt.node_id AND e.edge_type = ?"
	}
	var nextNodeExpr string
	switch dir {
	case DirectionReverse:
		nextNodeExpr = "e.from_node"
	case DirectionBoth:
		nextNodeExpr = "CASE WHEN e.from_node = gt.node_id THEN e.to_node ELSE e.from_node END"
	default:
		nextNodeExpr = "e.to_node"
	}
	query := fmt.Sprintf(`
		WITH RECURSIVE graph_traversal(node_id, depth_level) AS (
			SELECT ? AS node_id, 0 AS depth_level
			UNION
			SELECT %s, gt.depth_level + 1
			FROM graph_traversal gt
			JOIN code_edges e ON %s
			WHERE gt.depth_level < ?
		)
		SELECT DISTINCT n.id, n.type, n.name, n.file_path, n.start_line, n.end_line, n.signature, n.summary, n.metadata, n.created_at, n.updated_at
		FROM graph_traversal gt
		JOIN code_nodes n ON gt.node_id = n.id
		WHERE gt.node_id != ?
	`, nextNodeExpr, joinCond)
	rows, err := s.db.QueryContext(ctx, query, nodeID, string(edgeType), depth, nodeID)
	if err != nil {
		return nil, fmt.Errorf("codegraph: directed traversal from %s: %w", nodeID, err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// UpsertFileHash records the content hash used by the scanner's change gate.
func (s *Store) UpsertFileHash(ctx context.Context, fh model.FileHash) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_hashes (path, hash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET hash=excluded.hash, updated_at=excluded.updated_at
	`, fh.Path, fh.Hash, fh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("codegraph: upsert file hash %s: %w", fh.Path, err)
	}
	return nil
}

// GetFileHash returns the last recorded hash for path, or ("", false) if
// the file has never been scanned.
func (s *Store) GetFileHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM file_hashes WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("codegraph: get file hash %s: %w", path, err)
	}
	return hash, true, nil
}

// DeleteFileHash removes the tracked hash for a file that no longer exists.
func (s *Store) DeleteFileHash(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_hashes WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("codegraph: delete file hash %s: %w", path, err)
	}
	return nil
}

// AllFileHashes lists every tracked path, for diffing against a fresh
// filesystem walk during a full rescan.
func (s *Store) AllFileHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, hash FROM file_hashes`)
	if err != nil {
		return nil, fmt.Errorf("codegraph: list file hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		out[path] = hash
	}
	return out, rows.Err()
}

type scanRow interface {
	Scan(dest ...interface{}) error
}

func scanNode(row scanRow) (*model.CodeNode, error) {
	var n model.CodeNode
	var typ string
	var meta sql.NullString
	var startLine, endLine sql.NullInt64
	var signature, summary sql.NullString
	if err := row.Scan(&n.ID, &typ, &n.Name, &n.FilePath, &startLine, &endLine, &signature, &summary, &meta, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Type = model.CodeNodeType(typ)
	n.StartLine = int(startLine.Int64)
	n.EndLine = int(endLine.Int64)
	n.Signature = signature.String
	n.Summary = summary.String
	meta_, err := unmarshalMetadata(meta.String)
	if err != nil {
		return nil, err
	}
	n.Metadata = meta_
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]model.CodeNode, error) {
	var out []model.CodeNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("codegraph: marshal metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]interface{}, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("codegraph: unmarshal metadata: %w", err)
	}
	return m, nil
}
