package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReindexesWrittenFile(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Start(ctx, s, Config{RootPath: dir, Incremental: true})
	require.NoError(t, err)
	defer w.Stop()

	writeGoFile(t, dir, "added.go", "package sample\n\nfunc Added() {}\n")

	require.Eventually(t, func() bool {
		nodes, err := graph.FindNodesByName(context.Background(), "Added")
		return err == nil && len(nodes) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	s := New(graph, nil)
	ctx := context.Background()

	_, _, err := s.Scan(ctx, Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := Start(watchCtx, s, Config{RootPath: dir, Incremental: true})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, ok, err := graph.GetFileHash(context.Background(), "sample.go")
		return err == nil && !ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	graph := newTestGraph(t)
	s := New(graph, nil)

	w, err := Start(context.Background(), s, Config{RootPath: dir})
	require.NoError(t, err)

	w.Stop()
	w.Stop()
}

func TestWatcherRejectsNonDirectoryRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	graph := newTestGraph(t)
	s := New(graph, nil)

	_, err := Start(context.Background(), s, Config{RootPath: file})
	require.Error(t, err)
}
