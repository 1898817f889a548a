package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// QdrantStore is a C2 adapter backed by a remote Qdrant collection, grounded
// on the qdrant-go-client usage patterns in the retrieval pack's manifold
// repo (point-struct upsert + filtered search with payload round-trip).
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        uint64
}

// NewQdrantStore dials the Qdrant gRPC API on host addr, port 6334, and
// targets collection. addr is used as the host name as given, so it carries
// no port of its own.
func NewQdrantStore(addr, collection string, dim uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: addr, Port: 6334})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant: %w", err)
	}
	return &QdrantStore{client: client, collection: collection, dim: dim}, nil
}

func (s *QdrantStore) Initialize(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("vectorstore: check collection: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, payload Payload) error {
	pointID, err := qdrantPointID(id)
	if err != nil {
		return err
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      pointID,
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payloadToValueMap(id, payload)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert %s: %w", id, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, filters Filters, limit int) ([]SearchHit, error) {
	lim := uint64(limit)
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}

	hits := make([]SearchHit, 0, len(res))
	for _, point := range res {
		payload := valueMapToPayload(point.GetPayload())
		if !filters.Empty() && !matchFilters(filters, payload) {
			continue
		}
		hits = append(hits, SearchHit{
			ID:       point.GetId().GetUuid(),
			MemoryID: payload.MemoryID,
			Payload:  payload,
			Score:    float64(point.GetScore()),
		})
	}
	return hits, nil
}

func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	pointID, err := qdrantPointID(id)
	if err != nil {
		return err
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointID),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete %s: %w", id, err)
	}
	return nil
}

func (s *QdrantStore) DeleteByMemoryID(ctx context.Context, memoryID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("memory_id", memoryID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete by memory %s: %w", memoryID, err)
	}
	return nil
}

func (s *QdrantStore) GetCollectionInfo(ctx context.Context) (CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("vectorstore: collection info: %w", err)
	}
	return CollectionInfo{
		VectorsCount: int64(info.GetVectorsCount()),
		PointsCount:  int64(info.GetPointsCount()),
	}, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// qdrantPointID maps an arbitrary string id to a deterministic UUID, since
// Qdrant point IDs must be numeric or UUID (unlike SurrealDB's free-form
// record IDs).
func qdrantPointID(id string) (*qdrant.PointId, error) {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	return qdrant.NewIDUUID(u.String()), nil
}

func payloadToValueMap(id string, p Payload) map[string]interface{} {
	return map[string]interface{}{
		"point_key":     id,
		"memory_id":     p.MemoryID,
		"entity_id":     p.EntityID,
		"type":          p.Type,
		"title":         p.Title,
		"tags":          p.Tags,
		"related_files": p.RelatedFiles,
		"importance":    p.Importance,
	}
}

func valueMapToPayload(m map[string]*qdrant.Value) Payload {
	p := Payload{}
	if v, ok := m["memory_id"]; ok {
		p.MemoryID = v.GetStringValue()
	}
	if v, ok := m["entity_id"]; ok {
		p.EntityID = v.GetStringValue()
	}
	if v, ok := m["type"]; ok {
		p.Type = v.GetStringValue()
	}
	if v, ok := m["title"]; ok {
		p.Title = v.GetStringValue()
	}
	if v, ok := m["importance"]; ok {
		p.Importance = v.GetDoubleValue()
	}
	if v, ok := m["tags"]; ok {
		p.Tags = listValueToStrings(v)
	}
	if v, ok := m["related_files"]; ok {
		p.RelatedFiles = listValueToStrings(v)
	}
	return p
}

func listValueToStrings(v *qdrant.Value) []string {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}
