package scanner

import (
	"context"
	"fmt"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
	"github.com/docleaai/doclea-mcp-sub003/pkg/embedder"
	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
)

// Chunking thresholds, ported from the teacher's indexer_chunks.go: a
// symbol's source is only split when it won't fit comfortably in one
// embedding call.
const (
	ChunkThreshold = 1500
	ChunkSize      = 1500
	ChunkOverlap   = 200
)

// ChunkEmbedder is the subset of embedclient.Client a Scanner needs to embed
// oversized symbol chunks. Declared locally so scanner doesn't import
// internal/embedclient (which itself depends on retrieval's call shape).
type ChunkEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// chunkAndEmbedSymbols splits any symbol whose source exceeds ChunkThreshold
// into overlapping chunks, embeds them, and upserts one vector point per
// chunk — tagged with the parent node's id so a chunk hit resolves back to
// its symbol the same way the teacher's createSymbolChunks links chunks to
// a CodeChunk.SymbolID. Symbols that fit in one piece are left alone; KAG
// already has their full source via the node itself.
func (s *Scanner) chunkAndEmbedSymbols(ctx context.Context, relPath string, nodeIDs map[string]string, symbols []*treesitter.CodeSymbol) error {
	if s.Vectors == nil || s.Embedder == nil {
		return nil
	}

	var (
		chunks  []model.CodeChunk
		pending []*treesitter.CodeSymbol
	)
	for _, sym := range symbols {
		if sym.SourceCode == "" || len(sym.SourceCode) < ChunkThreshold {
			continue
		}
		nodeID, ok := nodeIDs[sym.Name]
		if !ok {
			continue
		}
		pieces := embedder.ChunkText(sym.SourceCode, ChunkSize, ChunkOverlap)
		if len(pieces) <= 1 {
			continue
		}
		for i, content := range pieces {
			chunks = append(chunks, model.CodeChunk{
				ID:         model.ChunkID(nodeID, i),
				NodeID:     nodeID,
				FilePath:   relPath,
				ChunkIndex: i,
				ChunkCount: len(pieces),
				Content:    content,
			})
		}
		pending = append(pending, sym)
	}

	if len(chunks) == 0 {
		return nil
	}

	s.deleteStaleChunks(ctx, pending, nodeIDs, chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed symbol chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed symbol chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, c := range chunks {
		payload := vectorstore.Payload{
			EntityID: c.NodeID,
			Type:     "code_chunk",
			Title:    c.FilePath,
		}
		if err := s.Vectors.Upsert(ctx, c.ID, vectors[i], payload); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// staleChunkMargin bounds how many chunk indices past a symbol's current
// piece count get a delete pass, covering a re-scanned symbol that shrank
// and has fewer chunks than it did last time. Store.Delete is idempotent.
const staleChunkMargin = 8

func (s *Scanner) deleteStaleChunks(ctx context.Context, symbols []*treesitter.CodeSymbol, nodeIDs map[string]string, chunks []model.CodeChunk) {
	counts := make(map[string]int, len(chunks))
	for _, c := range chunks {
		counts[c.NodeID] = c.ChunkCount
	}
	for _, sym := range symbols {
		nodeID, ok := nodeIDs[sym.Name]
		if !ok {
			continue
		}
		for i := counts[nodeID]; i < counts[nodeID]+staleChunkMargin; i++ {
			_ = s.Vectors.Delete(ctx, model.ChunkID(nodeID, i))
		}
	}
}
