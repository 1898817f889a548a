package codegraph

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

func mkNode(id, name, file string) model.CodeNode {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.CodeNode{ID: id, Type: model.CodeNodeFunction, Name: name, FilePath: file, CreatedAt: now, UpdatedAt: now}
}

func TestUpsertAndGetNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := mkNode("a.go:function:Foo", "Foo", "a.go")
	require.NoError(t, s.UpsertNode(ctx, n))

	got, err := s.GetNode(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Foo", got.Name)

	n.Summary = "updated"
	require.NoError(t, s.UpsertNode(ctx, n))
	got, err = s.GetNode(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, "updated", got.Summary)
}

func TestDeleteNodesForFileCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mkNode("a.go:function:Foo", "Foo", "a.go")
	b := mkNode("b.go:function:Bar", "Bar", "b.go")
	require.NoError(t, s.UpsertNode(ctx, a))
	require.NoError(t, s.UpsertNode(ctx, b))
	require.NoError(t, s.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: a.ID, ToNode: b.ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()}))

	require.NoError(t, s.DeleteNodesForFile(ctx, "a.go"))

	got, err := s.GetNode(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	neighbors, err := s.Neighbors(ctx, b.ID, 2)
	require.NoError(t, err)
	require.Empty(t, neighbors)
}

func TestNeighborsBoundedDepth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	nodes := []model.CodeNode{
		mkNode("f.go:function:A", "A", "f.go"),
		mkNode("f.go:function:B", "B", "f.go"),
		mkNode("f.go:function:C", "C", "f.go"),
		mkNode("f.go:function:D", "D", "f.go"),
	}
	for _, n := range nodes {
		require.NoError(t, s.UpsertNode(ctx, n))
	}
	edges := []model.CodeEdge{
		{ID: "e1", FromNode: nodes[0].ID, ToNode: nodes[1].ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()},
		{ID: "e2", FromNode: nodes[1].ID, ToNode: nodes[2].ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()},
		{ID: "e3", FromNode: nodes[2].ID, ToNode: nodes[3].ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()},
	}
	for _, e := range edges {
		require.NoError(t, s.UpsertEdge(ctx, e))
	}

	depth1, err := s.Neighbors(ctx, nodes[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, depth1, 1)

	depth3, err := s.Neighbors(ctx, nodes[0].ID, 3)
	require.NoError(t, err)
	require.Len(t, depth3, 3)

	excessive, err := s.Neighbors(ctx, nodes[0].ID, 99)
	require.NoError(t, err)
	require.Len(t, excessive, 3)
}

func TestCallGraphDirections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mkNode("f.go:function:A", "A", "f.go")
	b := mkNode("f.go:function:B", "B", "f.go")
	require.NoError(t, s.UpsertNode(ctx, a))
	require.NoError(t, s.UpsertNode(ctx, b))
	require.NoError(t, s.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: a.ID, ToNode: b.ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()}))

	callees, err := s.Callees(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	require.Equal(t, "B", callees[0].Name)

	callers, err := s.Callers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	require.Equal(t, "A", callers[0].Name)

	require.Empty(t, mustCallers(t, s, a.ID))
}

func mustCallers(t *testing.T, s *Store, id string) []model.CodeNode {
	t.Helper()
	out, err := s.Callers(context.Background(), id)
	require.NoError(t, err)
	return out
}

func TestFileEdgeWeightsAndPathCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mkNode("a.go:function:A", "A", "a.go")
	b := mkNode("b.go:function:B", "B", "b.go")
	require.NoError(t, s.UpsertNode(ctx, a))
	require.NoError(t, s.UpsertNode(ctx, b))
	require.NoError(t, s.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: a.ID, ToNode: b.ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()}))

	weights, err := s.FileEdgeWeights(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, weights["a.go"]["b.go"])
	require.Equal(t, 1, weights["b.go"]["a.go"])

	counts, err := s.FilePathCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts["a.go"])
	require.Equal(t, 1, counts["b.go"])
}

func TestFindNodesByFilePathSuffixAndAllFilePaths(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	n := mkNode("src/user-controller.ts:module:src/user-controller.ts", "user-controller.ts", "src/user-controller.ts")
	require.NoError(t, s.UpsertNode(ctx, n))

	found, err := s.FindNodesByFilePathSuffix(ctx, "user-controller.ts")
	require.NoError(t, err)
	require.Len(t, found, 1)

	paths, err := s.AllFilePaths(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"src/user-controller.ts"}, paths)
}

func TestFindImplementations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	iface := mkNode("x.go:interface:Reader", "Reader", "x.go")
	impl := mkNode("y.go:class:FileReader", "FileReader", "y.go")
	require.NoError(t, s.UpsertNode(ctx, iface))
	require.NoError(t, s.UpsertNode(ctx, impl))
	require.NoError(t, s.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: impl.ID, ToNode: iface.ID, EdgeType: model.EdgeImplements, CreatedAt: time.Now()}))

	impls, err := s.FindImplementations(ctx, iface.ID)
	require.NoError(t, err)
	require.Len(t, impls, 1)
	require.Equal(t, "FileReader", impls[0].Name)
}

func TestReplaceFileSwapsNodesAndEdgesAtomically(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := mkNode("a.go:function:Old", "Old", "a.go")
	other := mkNode("b.go:function:B", "B", "b.go")
	require.NoError(t, s.UpsertNode(ctx, old))
	require.NoError(t, s.UpsertNode(ctx, other))
	require.NoError(t, s.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: old.ID, ToNode: other.ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()}))

	newNode := mkNode("a.go:function:New", "New", "a.go")
	newEdge := model.CodeEdge{ID: "e2", FromNode: newNode.ID, ToNode: other.ID, EdgeType: model.EdgeCalls, CreatedAt: time.Now()}
	require.NoError(t, s.ReplaceFile(ctx, "a.go", []model.CodeNode{newNode}, []model.CodeEdge{newEdge}))

	gotOld, err := s.GetNode(ctx, old.ID)
	require.NoError(t, err)
	require.Nil(t, gotOld)

	gotNew, err := s.GetNode(ctx, newNode.ID)
	require.NoError(t, err)
	require.NotNil(t, gotNew)

	callees, err := s.Callees(ctx, newNode.ID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
}

func TestReplaceFileSkipsEdgesToUnknownTargets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	newNode := mkNode("a.go:function:New", "New", "a.go")
	dangling := model.CodeEdge{ID: "e1", FromNode: newNode.ID, ToNode: "missing.go:function:Ghost", EdgeType: model.EdgeCalls, CreatedAt: time.Now()}

	require.NoError(t, s.ReplaceFile(ctx, "a.go", []model.CodeNode{newNode}, []model.CodeEdge{dangling}))

	callees, err := s.Callees(ctx, newNode.ID)
	require.NoError(t, err)
	require.Empty(t, callees)
}

func TestFileHashRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetFileHash(ctx, "missing.go")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.UpsertFileHash(ctx, model.FileHash{Path: "a.go", Hash: "h1", UpdatedAt: time.Now()}))
	hash, ok, err := s.GetFileHash(ctx, "a.go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "h1", hash)

	require.NoError(t, s.DeleteFileHash(ctx, "a.go"))
	_, ok, err = s.GetFileHash(ctx, "a.go")
	require.NoError(t, err)
	require.False(t, ok)
}
