package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
)

func newTestGraph(t *testing.T) *codegraph.Store {
	t.Helper()
	s, err := codegraph.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeGoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleGoFile = `package sample

// Greet says hello to name.
func Greet(name string) string {
	return "hello " + name
}

// unexported does nothing interesting.
func helper() {}
`

func TestScanAddsNodesForNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)

	stats, changes, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, Concurrency: 2})
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesScanned)
	require.Greater(t, stats.NodesAdded, 0)

	var kinds []string
	for _, c := range changes {
		if c.Path == "sample.go" {
			kinds = append(kinds, c.Kind)
		}
	}
	require.Contains(t, kinds, "added")
}

func TestScanIncrementalSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx := context.Background()

	_, _, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	_, changes, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	var found bool
	for _, c := range changes {
		if c.Path == "sample.go" {
			require.Equal(t, "unchanged", c.Kind)
			found = true
		}
	}
	require.True(t, found)
}

func TestScanDetectsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx := context.Background()

	_, _, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	writeGoFile(t, dir, "sample.go", sampleGoFile+"\nfunc Another() {}\n")

	_, changes, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	var found bool
	for _, c := range changes {
		if c.Path == "sample.go" {
			require.Equal(t, "modified", c.Kind)
			found = true
		}
	}
	require.True(t, found)
}

func TestScanPrunesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx := context.Background()

	_, _, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	stats, changes, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)
	require.Equal(t, 3, stats.NodesDeleted)

	var found bool
	for _, c := range changes {
		if c.Path == "sample.go" && c.Kind == "deleted" {
			found = true
		}
	}
	require.True(t, found)

	_, ok, err := graph.GetFileHash(ctx, "sample.go")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScanExcludesVendoredDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "pkg"), 0o755))
	writeGoFile(t, filepath.Join(dir, "vendor", "pkg"), "dep.go", sampleGoFile)
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)

	stats, _, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesScanned)
}

func TestScanExtractSummariesPopulatesSummaryMetadata(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)

	_, _, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, ExtractSummaries: true, Concurrency: 1})
	require.NoError(t, err)

	nodes, err := graph.FindNodesByName(context.Background(), "Greet")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.NotEmpty(t, nodes[0].Summary)
}

func TestScanFileRescansSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx := context.Background()

	change, err := s.ScanFile(ctx, dir, "sample.go", false)
	require.NoError(t, err)
	require.Equal(t, "added", change.Kind)

	change, err = s.ScanFile(ctx, dir, "sample.go", false)
	require.NoError(t, err)
	require.Equal(t, "unchanged", change.Kind)
}
