package graphrag

import (
	"context"
	"testing"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mkEntity(id, name string) model.GraphEntity {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.GraphEntity{ID: id, CanonicalName: name, EntityType: model.EntityTechnology, MentionCount: 1, FirstSeenAt: now, LastSeenAt: now}
}

func TestUpsertEntityBumpsMentionCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := mkEntity("e1", "Kubernetes")
	require.NoError(t, s.UpsertEntity(ctx, e))
	require.NoError(t, s.UpsertEntity(ctx, e))

	got, err := s.GetEntity(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, 2, got.MentionCount)
}

func TestFindEntityByNameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertEntity(ctx, mkEntity("e1", "Kubernetes")))

	got, err := s.FindEntityByName(ctx, "kubernetes")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "e1", got.ID)
}

func TestExpandEntitiesBoundedDepth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, e := range []model.GraphEntity{mkEntity("a", "A"), mkEntity("b", "B"), mkEntity("c", "C"), mkEntity("d", "D")} {
		require.NoError(t, s.UpsertEntity(ctx, e))
	}
	now := time.Now()
	require.NoError(t, s.UpsertRelationship(ctx, model.Relationship{ID: "r1", SourceEntityID: "a", TargetEntityID: "b", RelationshipType: "relates_to", CreatedAt: now}))
	require.NoError(t, s.UpsertRelationship(ctx, model.Relationship{ID: "r2", SourceEntityID: "b", TargetEntityID: "c", RelationshipType: "relates_to", CreatedAt: now}))
	require.NoError(t, s.UpsertRelationship(ctx, model.Relationship{ID: "r3", SourceEntityID: "c", TargetEntityID: "d", RelationshipType: "relates_to", CreatedAt: now}))

	depth1, err := s.ExpandEntities(ctx, []string{"a"}, 1)
	require.NoError(t, err)
	require.Len(t, depth1, 2) // a, b

	depth3, err := s.ExpandEntities(ctx, []string{"a"}, 3)
	require.NoError(t, err)
	require.Len(t, depth3, 4) // a, b, c, d
}

func TestCommunityAndReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertEntity(ctx, mkEntity("a", "A")))

	c := model.Community{ID: "comm1", Level: 0, EntityCount: 1}
	require.NoError(t, s.UpsertCommunity(ctx, c, []string{"a"}))

	communities, err := s.CommunitiesForEntity(ctx, "a")
	require.NoError(t, err)
	require.Len(t, communities, 1)
	require.Equal(t, "comm1", communities[0].ID)

	report := model.Report{CommunityID: "comm1", Title: "Overview", Summary: "short", KeyFindings: []string{"one", "two"}}
	require.NoError(t, s.UpsertReport(ctx, report))

	got, err := s.GetReport(ctx, "comm1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"one", "two"}, got.KeyFindings)
}

func TestMemoriesForEntities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.LinkEntityMemory(ctx, "a", "m1", 0.9))
	require.NoError(t, s.LinkEntityMemory(ctx, "a", "m2", 0.5))
	require.NoError(t, s.LinkEntityMemory(ctx, "b", "m2", 0.8))

	ids, err := s.MemoriesForEntities(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"m1", "m2"}, ids)
}

func TestMemoriesForEntityOrderedByConfidence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.LinkEntityMemory(ctx, "a", "low", 0.2))
	require.NoError(t, s.LinkEntityMemory(ctx, "a", "high", 0.9))

	ids, err := s.MemoriesForEntity(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []string{"high", "low"}, ids)
}

func TestCountEntitiesAndFindByTerms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	n, err := s.CountEntities(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, s.UpsertEntity(ctx, mkEntity("a", "Kubernetes")))
	n, err = s.CountEntities(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	found, err := s.FindEntitiesByTerms(ctx, []string{"kube"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = s.FindEntitiesByTerms(ctx, []string{"kube"}, map[string]struct{}{"a": {}})
	require.NoError(t, err)
	require.Empty(t, found)
}
