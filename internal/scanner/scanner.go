// Package scanner implements the C5 Incremental Scanner (spec.md §4.5):
// it walks a project tree, diffs every file's content hash against the
// code graph's recorded hash, and replaces each changed file's nodes and
// edges in one transaction, extracting symbols via tree-sitter. The only
// edges it emits are in-file parent/child containment edges; call and
// import edges are not produced.
//
// Grounded on the teacher's internal/indexer package — FileScanner's
// exclusion-pattern walk, the worker-pool shape in processFiles, and
// CodeWatcher's fsnotify debounce loop — generalized from
// storage.FullStorage's CodeSymbol/CodeFile rows to codegraph.Store's
// CodeNode/CodeEdge/FileHash rows.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/summarizer"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
)

// Config controls one Scan call.
type Config struct {
	RootPath         string
	Patterns         []string // glob patterns to include; empty means all supported languages
	Exclude          []string // additional exclude patterns, merged with DefaultExcludePatterns
	Incremental      bool     // skip files whose content hash is unchanged
	ExtractSummaries bool
	Concurrency      int
}

// Stats is the scan summary spec.md §4.5 requires.
type Stats struct {
	FilesScanned int
	NodesAdded   int
	NodesDeleted int
	EdgesAdded   int
	EdgesDeleted int
}

// FileChange records one file's outcome, surfaced in the scanner's
// per-file change log (spec.md §7: "the scanner surfaces per-file errors
// in its change log but never aborts the batch").
type FileChange struct {
	Path       string
	Kind       string // "added", "modified", "unchanged", "deleted", "error"
	Error      string
	NodesAdded int
	EdgesAdded int
}

// Scanner is the C5 adapter.
type Scanner struct {
	Graph  *codegraph.Store
	Parser *treesitter.Parser
	Walker *treesitter.ASTWalker
	SumCfg summarizer.Config

	// Vectors and Embedder are optional: when both are set, any symbol
	// whose source exceeds ChunkThreshold is split and each chunk is
	// embedded and upserted as its own vector point (spec.md §9 symbol
	// chunking). Either left nil, chunking is skipped entirely.
	Vectors  vectorstore.Store
	Embedder ChunkEmbedder

	excludePatterns []string
}

// New builds a Scanner with the default exclusion set merged with any
// caller-supplied additions.
func New(graph *codegraph.Store, exclude []string) *Scanner {
	s := &Scanner{
		Graph:  graph,
		Parser: treesitter.NewParser(),
		Walker: treesitter.NewASTWalker(treesitter.DefaultWalkerConfig()),
		SumCfg: summarizer.DefaultConfig(),
	}
	s.excludePatterns = DefaultExcludePatterns()
	s.mergeExclude(exclude)
	return s
}

func (s *Scanner) mergeExclude(patterns []string) {
	existing := make(map[string]bool, len(s.excludePatterns))
	for _, p := range s.excludePatterns {
		existing[p] = true
	}
	for _, p := range patterns {
		if !existing[p] {
			s.excludePatterns = append(s.excludePatterns, p)
			existing[p] = true
		}
	}
}

// Scan walks cfg.RootPath, diffs every discovered file's hash against
// the graph's recorded hash, and replaces the changed files' nodes and
// edges. It never aborts on a single file's error — the failure is
// recorded in the returned change log and scanning continues, per
// spec.md §7.
func (s *Scanner) Scan(ctx context.Context, cfg Config) (Stats, []FileChange, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if len(cfg.Exclude) > 0 {
		s.mergeExclude(cfg.Exclude)
	}

	files, err := s.walk(cfg)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("scanner: walk %s: %w", cfg.RootPath, err)
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.relPath] = struct{}{}
	}

	var (
		mu      sync.Mutex
		stats   Stats
		changes []FileChange
	)

	recordErr := func(path string, err error) {
		mu.Lock()
		changes = append(changes, FileChange{Path: path, Kind: "error", Error: err.Error()})
		mu.Unlock()
	}

	fileChan := make(chan scannedFile, len(files))
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// tree-sitter parsers aren't safe for concurrent use; each
			// worker gets its own, matching the teacher's per-worker
			// parser allocation in processFiles.
			workerParser := treesitter.NewParser()
			for f := range fileChan {
				change, err := s.scanOne(ctx, f, cfg, workerParser)
				if err != nil {
					recordErr(f.relPath, err)
					continue
				}
				mu.Lock()
				changes = append(changes, change)
				stats.FilesScanned++
				switch change.Kind {
				case "added", "modified":
					stats.NodesAdded += change.NodesAdded
					stats.EdgesAdded += change.EdgesAdded
				}
				mu.Unlock()
			}
		}()
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			close(fileChan)
			wg.Wait()
			return stats, changes, ctx.Err()
		case fileChan <- f:
		}
	}
	close(fileChan)
	wg.Wait()

	deleted, err := s.pruneDeletedFiles(ctx, onDisk)
	if err != nil {
		return stats, changes, fmt.Errorf("scanner: prune deleted files: %w", err)
	}
	stats.NodesDeleted += deleted.nodes
	stats.EdgesDeleted += deleted.edges
	changes = append(changes, deleted.changes...)

	return stats, changes, nil
}

type scannedFile struct {
	absPath  string
	relPath  string
	language treesitter.Language
	hash     string
}

func (s *Scanner) scanOne(ctx context.Context, f scannedFile, cfg Config, parser *treesitter.Parser) (FileChange, error) {
	existingHash, known, err := s.Graph.GetFileHash(ctx, f.relPath)
	if err != nil {
		return FileChange{}, fmt.Errorf("get file hash: %w", err)
	}

	if cfg.Incremental && known && existingHash == f.hash {
		return FileChange{Path: f.relPath, Kind: "unchanged"}, nil
	}

	content, err := os.ReadFile(f.absPath)
	if err != nil {
		return FileChange{}, fmt.Errorf("read file: %w", err)
	}

	tree, lang, err := parser.ParseFile(ctx, f.absPath)
	if err != nil {
		return FileChange{}, fmt.Errorf("parse file: %w", err)
	}

	symbols, err := s.Walker.ExtractSymbols(tree, content, lang, f.relPath, "")
	if err != nil {
		return FileChange{}, fmt.Errorf("extract symbols: %w", err)
	}

	nodes, edges, nodeIDs := s.toGraph(f.relPath, symbols, cfg.ExtractSummaries)

	if err := s.Graph.ReplaceFile(ctx, f.relPath, nodes, edges); err != nil {
		return FileChange{}, fmt.Errorf("replace file: %w", err)
	}

	if err := s.chunkAndEmbedSymbols(ctx, f.relPath, nodeIDs, symbols); err != nil {
		return FileChange{}, fmt.Errorf("chunk symbols: %w", err)
	}

	if err := s.Graph.UpsertFileHash(ctx, model.FileHash{Path: f.relPath, Hash: f.hash, UpdatedAt: time.Now()}); err != nil {
		return FileChange{}, fmt.Errorf("upsert file hash: %w", err)
	}

	kind := "modified"
	if !known {
		kind = "added"
	}
	return FileChange{Path: f.relPath, Kind: kind, NodesAdded: len(nodes), EdgesAdded: len(edges)}, nil
}

// ScanFile rescans a single file relative to rootPath, for the watcher's
// debounced per-file reindex path — it skips the directory walk the
// full Scan does and goes straight to hash-diff-then-replace.
func (s *Scanner) ScanFile(ctx context.Context, rootPath, relPath string, extractSummaries bool) (FileChange, error) {
	absPath := filepath.Join(rootPath, filepath.FromSlash(relPath))
	hash, err := hashFile(absPath)
	if err != nil {
		return FileChange{}, fmt.Errorf("hash file: %w", err)
	}
	f := scannedFile{absPath: absPath, relPath: filepath.ToSlash(relPath), hash: hash}
	return s.scanOne(ctx, f, Config{Incremental: true, ExtractSummaries: extractSummaries}, s.Parser)
}

// toGraph converts extracted symbols into CodeNode/CodeEdge rows. The only
// edges it emits are parent/child containment edges between symbols of
// this file; no call or import edges are produced, so no unresolved edge
// is ever persisted.
func (s *Scanner) toGraph(relPath string, symbols []*treesitter.CodeSymbol, extractSummaries bool) ([]model.CodeNode, []model.CodeEdge, map[string]string) {
	now := time.Now()
	nodes := make([]model.CodeNode, 0, len(symbols))
	byName := make(map[string]string) // symbol name -> node id, returned for chunk-to-node linking
	// bySymbolID maps an extractor symbol id (what ParentID refers to) to its node id.
	bySymbolID := make(map[string]string)

	for _, sym := range symbols {
		nodeType := codeNodeType(sym.SymbolType)
		id := model.NodeID(relPath, nodeType, sym.Name)

		meta := map[string]interface{}{"language": string(sym.Language)}
		summary := ""
		if extractSummaries {
			r := summarizer.Summarize(sym, s.SumCfg)
			summary = r.Summary
			meta["generatedBy"] = string(r.GeneratedBy)
			meta["confidence"] = r.Confidence
			meta["needsAiSummary"] = r.NeedsAISummary
		}

		nodes = append(nodes, model.CodeNode{
			ID: id, Type: nodeType, Name: sym.Name, FilePath: relPath,
			StartLine: sym.StartLine, EndLine: sym.EndLine,
			Signature: sym.Signature, Summary: summary, Metadata: meta,
			CreatedAt: now, UpdatedAt: now,
		})
		byName[sym.Name] = id
		bySymbolID[sym.ID] = id
	}

	var edges []model.CodeEdge
	for _, sym := range symbols {
		fromID := bySymbolID[sym.ID]
		if sym.ParentID != nil {
			// Parent/child nesting (e.g. a method inside a class) is
			// recorded as a containment edge of type references, only
			// when the parent is itself in this file's symbol set.
			if parentID, ok := bySymbolID[*sym.ParentID]; ok {
				edges = append(edges, model.CodeEdge{
					ID: parentID + "->" + fromID + ":contains", FromNode: parentID, ToNode: fromID,
					EdgeType: model.EdgeReferences, CreatedAt: now,
				})
			}
		}
	}
	return nodes, edges, byName
}

func codeNodeType(t treesitter.SymbolType) model.CodeNodeType {
	switch t {
	case treesitter.SymbolTypeFunction, treesitter.SymbolTypeMethod, treesitter.SymbolTypeConstructor:
		return model.CodeNodeFunction
	case treesitter.SymbolTypeClass, treesitter.SymbolTypeStruct:
		return model.CodeNodeClass
	case treesitter.SymbolTypeInterface, treesitter.SymbolTypeTrait:
		return model.CodeNodeInterface
	case treesitter.SymbolTypeTypeAlias, treesitter.SymbolTypeEnum:
		return model.CodeNodeType_
	default:
		return model.CodeNodeModule
	}
}

type pruneResult struct {
	nodes, edges int
	changes      []FileChange
}

// pruneDeletedFiles removes graph state for any tracked file no longer
// present on disk.
func (s *Scanner) pruneDeletedFiles(ctx context.Context, onDisk map[string]struct{}) (pruneResult, error) {
	tracked, err := s.Graph.AllFileHashes(ctx)
	if err != nil {
		return pruneResult{}, fmt.Errorf("list tracked files: %w", err)
	}
	counts, err := s.Graph.FilePathCounts(ctx)
	if err != nil {
		return pruneResult{}, fmt.Errorf("count nodes by file: %w", err)
	}

	var out pruneResult
	for path := range tracked {
		if _, ok := onDisk[path]; ok {
			continue
		}
		out.nodes += counts[path]
		if err := s.Graph.ReplaceFile(ctx, path, nil, nil); err != nil {
			return out, fmt.Errorf("remove deleted file %s: %w", path, err)
		}
		if err := s.Graph.DeleteFileHash(ctx, path); err != nil {
			return out, fmt.Errorf("delete file hash %s: %w", path, err)
		}
		out.changes = append(out.changes, FileChange{Path: path, Kind: "deleted"})
	}
	return out, nil
}

func (s *Scanner) walk(cfg Config) ([]scannedFile, error) {
	absRoot, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return nil, err
	}

	var files []scannedFile
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if s.shouldExclude(path, relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		lang, ok := treesitter.GetLanguageByExtension(ext)
		if !ok {
			return nil
		}
		if !matchesPatterns(relPath, cfg.Patterns) {
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			return nil
		}

		files = append(files, scannedFile{absPath: path, relPath: relPath, language: lang, hash: hash})
		return nil
	})
	return files, err
}

func matchesPatterns(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(relPath)); ok {
			return true
		}
	}
	return false
}

// shouldExclude mirrors the teacher's FileScanner.shouldExclude:
// wildcard-prefix match, exact name match, any path-component match, and
// a default exclude of hidden files/directories except a small allowlist.
func (s *Scanner) shouldExclude(absPath, relPath string, isDir bool) bool {
	name := filepath.Base(absPath)

	for _, pattern := range s.excludePatterns {
		if strings.HasPrefix(pattern, "*") {
			suffix := strings.TrimPrefix(pattern, "*")
			if strings.HasSuffix(name, suffix) {
				return true
			}
			continue
		}
		if name == pattern {
			return true
		}
		for _, part := range strings.Split(relPath, "/") {
			if part == pattern {
				return true
			}
		}
	}

	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		allowedHidden := map[string]bool{".github": true, ".gitlab": true}
		if !allowedHidden[name] {
			return true
		}
	}

	return false
}

// DefaultExcludePatterns mirrors the teacher's FileScanner default
// exclusion set, covering VCS, build, and cache directories across the
// languages tree-sitter supports.
func DefaultExcludePatterns() []string {
	return []string{
		".git", ".svn", ".hg", ".bzr", "_darcs",
		"node_modules", "bower_components", "jspm_packages", ".pnpm", ".next", ".nuxt", ".npm", ".yarn",
		"vendor",
		".venv", "venv", ".env", "env", "__pycache__", ".tox", ".mypy_cache", ".pytest_cache", ".ruff_cache", "eggs", "*.egg-info", ".eggs",
		".bundle",
		".gradle", ".m2",
		"obj", "packages", ".nuget",
		"target",
		"Pods", "DerivedData", ".build", "*.xcworkspace",
		".dart_tool", ".pub-cache", ".pub",
		"dist", "build", "out", "bin",
		".idea", ".vscode", ".vs", ".fleet", ".eclipse", ".settings", ".project", ".classpath", "*.swp", "*.swo", "*~",
		".cache", ".tmp", "tmp", "temp", "coverage", ".nyc_output",
		"generated", "*.generated.*", "*.min.js", "*.min.css", "*.bundle.js",
		"__mocks__", "__fixtures__", "testdata",
		"site", "docs/_build", "_site",
		".terraform", ".vagrant",
		"*.lock", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "Cargo.lock", "go.sum", "Gemfile.lock", "composer.lock", "Podfile.lock", "Packages.resolved",
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
