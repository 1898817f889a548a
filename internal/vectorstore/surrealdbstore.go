package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// SurrealDBStore is the default C2 adapter, grounded on the teacher's
// internal/storage/surrealdb_vectors.go: a single table with a native MTREE
// vector index and vector::similarity::cosine scoring (range [-1,1]).
type SurrealDBStore struct {
	db    *surrealdb.DB
	table string
	dim   int
}

// NewSurrealDBStore connects to SurrealDB at url (e.g. "ws://localhost:8000",
// or an embedded-engine scheme such as "memory" or "surrealkv://path"
// supported natively by surrealdb.go) and selects namespace/database.
func NewSurrealDBStore(ctx context.Context, url, namespace, database, user, pass string, dim int) (*SurrealDBStore, error) {
	db, err := surrealdb.New(url)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect surrealdb: %w", err)
	}
	if user != "" && pass != "" {
		if _, err := db.SignIn(map[string]interface{}{"user": user, "pass": pass}); err != nil {
			return nil, fmt.Errorf("vectorstore: signin surrealdb: %w", err)
		}
	}
	if err := db.Use(namespace, database); err != nil {
		return nil, fmt.Errorf("vectorstore: use namespace/database: %w", err)
	}
	return &SurrealDBStore{db: db, table: "context_vectors", dim: dim}, nil
}

func (s *SurrealDBStore) Initialize(ctx context.Context) error {
	schema := fmt.Sprintf(`
		DEFINE TABLE IF NOT EXISTS %s SCHEMALESS;
		DEFINE FIELD IF NOT EXISTS embedding ON %s TYPE array<float>;
		DEFINE FIELD IF NOT EXISTS memory_id ON %s TYPE option<string>;
		DEFINE FIELD IF NOT EXISTS entity_id ON %s TYPE option<string>;
		DEFINE FIELD IF NOT EXISTS payload ON %s TYPE object;
		DEFINE INDEX IF NOT EXISTS %s_mtree ON %s FIELDS embedding MTREE DIMENSION %d DIST COSINE;
	`, s.table, s.table, s.table, s.table, s.table, s.table, s.table, s.dim)
	_, err := surrealdb.Query[[]map[string]interface{}](s.db, schema, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: initialize schema: %w", err)
	}
	return nil
}

func (s *SurrealDBStore) Upsert(ctx context.Context, id string, vector []float32, payload Payload) error {
	query := fmt.Sprintf(`
		UPDATE type::thing($table, $id) CONTENT {
			embedding: $embedding,
			memory_id: $memory_id,
			entity_id: $entity_id,
			payload: $payload
		}
	`)
	params := map[string]interface{}{
		"table":     s.table,
		"id":        id,
		"embedding": vector,
		"memory_id": payload.MemoryID,
		"entity_id": payload.EntityID,
		"payload":   payloadToMap(payload),
	}
	_, err := surrealdb.Query[[]map[string]interface{}](s.db, query, params)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert %s: %w", id, err)
	}
	return nil
}

func (s *SurrealDBStore) Search(ctx context.Context, vector []float32, filters Filters, limit int) ([]SearchHit, error) {
	query := fmt.Sprintf(`
		SELECT id, memory_id, payload, vector::similarity::cosine(embedding, $vector) AS score
		FROM %s
		WHERE embedding <|%d|> $vector
		ORDER BY score DESC
	`, s.table, limit)
	params := map[string]interface{}{"vector": vector}

	result, err := surrealdb.Query[[]surrealRow](s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	if result == nil || len(*result) == 0 {
		return nil, nil
	}

	hits := make([]SearchHit, 0, limit)
	for _, row := range (*result)[0].Result {
		payload := mapToPayload(row.Payload)
		if !filters.Empty() && !matchFilters(filters, payload) {
			continue
		}
		hits = append(hits, SearchHit{
			ID:       row.ID,
			MemoryID: row.MemoryID,
			Payload:  payload,
			Score:    row.Score,
		})
	}
	return hits, nil
}

func (s *SurrealDBStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[map[string]interface{}](s.db, surrealdb.RecordID{Table: s.table, ID: id})
	if err != nil {
		return fmt.Errorf("vectorstore: delete %s: %w", id, err)
	}
	return nil
}

func (s *SurrealDBStore) DeleteByMemoryID(ctx context.Context, memoryID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE memory_id = $memory_id`, s.table)
	_, err := surrealdb.Query[[]map[string]interface{}](s.db, query, map[string]interface{}{"memory_id": memoryID})
	if err != nil {
		return fmt.Errorf("vectorstore: delete by memory %s: %w", memoryID, err)
	}
	return nil
}

func (s *SurrealDBStore) GetCollectionInfo(ctx context.Context) (CollectionInfo, error) {
	query := fmt.Sprintf(`SELECT count() FROM %s GROUP ALL`, s.table)
	result, err := surrealdb.Query[[]map[string]interface{}](s.db, query, nil)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("vectorstore: collection info: %w", err)
	}
	if result == nil || len(*result) == 0 || len((*result)[0].Result) == 0 {
		return CollectionInfo{}, nil
	}
	count, _ := (*result)[0].Result[0]["count"].(float64)
	return CollectionInfo{VectorsCount: int64(count), PointsCount: int64(count)}, nil
}

func (s *SurrealDBStore) Close() error {
	return s.db.Close()
}

type surrealRow struct {
	ID       string                 `json:"id"`
	MemoryID string                 `json:"memory_id"`
	Payload  map[string]interface{} `json:"payload"`
	Score    float64                `json:"score"`
}

func payloadToMap(p Payload) map[string]interface{} {
	b, _ := json.Marshal(p)
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func mapToPayload(m map[string]interface{}) Payload {
	b, _ := json.Marshal(m)
	var p Payload
	_ = json.Unmarshal(b, &p)
	return p
}
