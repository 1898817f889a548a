package memorystore

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

func mkMemory(id string) model.Memory {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Memory{
		ID: id, Type: model.MemoryTypeDecision, Title: "t", Content: "c",
		Importance: 0.7, Tags: []string{"auth"}, RelatedFiles: []string{"a.go"},
		CreatedAt: now, AccessedAt: now,
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := mkMemory("m1")
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "t", got.Title)
	require.Equal(t, []string{"auth"}, got.Tags)
	require.Equal(t, []string{"a.go"}, got.RelatedFiles)
}

func TestSaveTruncatesRelatedFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := mkMemory("m1")
	for i := 0; i < model.MaxRelatedFiles+10; i++ {
		m.RelatedFiles = append(m.RelatedFiles, "file.go")
	}
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got.RelatedFiles, model.MaxRelatedFiles)
}

func TestTouchAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := mkMemory("m1")
	require.NoError(t, s.Save(ctx, m))

	later := m.AccessedAt.Add(time.Hour)
	require.NoError(t, s.TouchAccess(ctx, "m1", later))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, 1, got.AccessCount)
	require.True(t, got.AccessedAt.Equal(later))
}

func TestGetManyAndListByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Save(ctx, mkMemory("m1")))
	require.NoError(t, s.Save(ctx, mkMemory("m2")))

	many, err := s.GetMany(ctx, []string{"m1", "m2", "missing"})
	require.NoError(t, err)
	require.Len(t, many, 2)

	byType, err := s.ListByType(ctx, model.MemoryTypeDecision)
	require.NoError(t, err)
	require.Len(t, byType, 2)
}

func TestDeleteAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Save(ctx, mkMemory("m1")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Delete(ctx, "m1"))
	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.Nil(t, got)
}
