package scanner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

type fakeVectorStore struct {
	upserts map[string]vectorstore.Payload
	deletes map[string]int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{upserts: map[string]vectorstore.Payload{}, deletes: map[string]int{}}
}

func (f *fakeVectorStore) Initialize(ctx context.Context) error { return nil }
func (f *fakeVectorStore) Upsert(ctx context.Context, id string, vector []float32, payload vectorstore.Payload) error {
	f.upserts[id] = payload
	return nil
}
func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, filters vectorstore.Filters, limit int) ([]vectorstore.SearchHit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Delete(ctx context.Context, id string) error {
	f.deletes[id]++
	delete(f.upserts, id)
	return nil
}
func (f *fakeVectorStore) DeleteByMemoryID(ctx context.Context, id string) error { return nil }
func (f *fakeVectorStore) GetCollectionInfo(ctx context.Context) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{}, nil
}
func (f *fakeVectorStore) Close() error { return nil }

type fakeChunkEmbedder struct{}

func (fakeChunkEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0, 0}
	}
	return out, nil
}

// largeFunctionGoFile has one function whose body alone exceeds
// ChunkThreshold, forcing the chunker to split it.
func largeFunctionGoFile() string {
	var b strings.Builder
	b.WriteString("package sample\n\nfunc Big() int {\n\tsum := 0\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "\tsum += %d\n", i)
	}
	b.WriteString("\treturn sum\n}\n")
	return b.String()
}

func TestScanChunksOversizedSymbols(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "big.go", largeFunctionGoFile())

	graph := newTestGraph(t)
	vectors := newFakeVectorStore()
	s := New(graph, nil)
	s.Vectors = vectors
	s.Embedder = fakeChunkEmbedder{}

	_, _, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)

	require.NotEmpty(t, vectors.upserts)
	for id, payload := range vectors.upserts {
		require.Equal(t, "code_chunk", payload.Type)
		require.Contains(t, id, ":chunk:")
	}
}

func TestScanSkipsChunkingWithoutVectorStore(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "big.go", largeFunctionGoFile())

	graph := newTestGraph(t)
	s := New(graph, nil)

	_, _, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)
}

func TestScanSmallSymbolsAreNotChunked(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoFile)

	graph := newTestGraph(t)
	vectors := newFakeVectorStore()
	s := New(graph, nil)
	s.Vectors = vectors
	s.Embedder = fakeChunkEmbedder{}

	_, _, err := s.Scan(context.Background(), Config{RootPath: dir, Incremental: true, Concurrency: 1})
	require.NoError(t, err)
	require.Empty(t, vectors.upserts)
}
