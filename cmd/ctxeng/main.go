// Package main is the entry point for the ctxeng retrieval and
// context-assembly engine.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/config"
	"github.com/docleaai/doclea-mcp-sub003/internal/embedclient"
	"github.com/docleaai/doclea-mcp-sub003/internal/graphrag"
	"github.com/docleaai/doclea-mcp-sub003/internal/memorystore"
	"github.com/docleaai/doclea-mcp-sub003/internal/retrieval"
	"github.com/docleaai/doclea-mcp-sub003/internal/scanner"
	"github.com/docleaai/doclea-mcp-sub003/internal/transport"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
	"github.com/docleaai/doclea-mcp-sub003/pkg/embedder"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SetupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// codegraph, graphrag and memorystore are different tables in the same
	// sqlite file, so they share one *sql.DB and its single write
	// connection instead of each opening (and locking) the file on its own.
	db, err := sql.Open("sqlite", cfg.DbPath)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	codeGraph, err := codegraph.OpenWithDB(ctx, db)
	if err != nil {
		log.Fatalf("failed to open code graph store: %v", err)
	}

	graphRAG, err := graphrag.OpenWithDB(ctx, db)
	if err != nil {
		log.Fatalf("failed to open GraphRAG store: %v", err)
	}

	memories, err := memorystore.OpenWithDB(ctx, db)
	if err != nil {
		log.Fatalf("failed to open memory store: %v", err)
	}

	vectors, err := vectorstore.New(ctx, vectorstore.Config{
		Backend:          cfg.GetVectorBackend(),
		SurrealURL:       cfg.SurrealDBURL,
		SurrealNS:        cfg.GetSurrealDBNamespace(),
		SurrealDB:        cfg.GetSurrealDBDatabase(),
		SurrealUser:      cfg.SurrealDBUser,
		SurrealPass:      cfg.SurrealDBPass,
		QdrantAddr:       cfg.QdrantURL,
		QdrantCollection: "ctxeng",
		PgDSN:            cfg.PgDSN,
	})
	if err != nil {
		log.Fatalf("failed to initialize vector store: %v", err)
	}
	defer vectors.Close()
	if err := vectors.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize vector store schema: %v", err)
	}

	emb, err := embedder.NewEmbedderFromMainConfig(cfg)
	if err != nil {
		log.Fatalf("failed to initialize embedder: %v", err)
	}
	embedderModel := cfg.GetOllamaModel()
	if embedderModel == "" {
		embedderModel = cfg.GetOpenAIModel()
	}
	embClient := embedclient.New(emb, embedderModel)

	// A code-specific embedding model (CodeRankEmbed, Jina-code, ...) is
	// optional; when unset NewCodeEmbedderFromMainConfig returns (nil, nil)
	// and code chunks share the text embedder.
	codeEmb, err := embedder.NewCodeEmbedderFromMainConfig(cfg)
	if err != nil {
		log.Fatalf("failed to initialize code embedder: %v", err)
	}
	codeEmbClient := embClient
	if codeEmb != nil {
		codeEmbClient = embedclient.New(codeEmb, cfg.GetCodeEmbedderModel())
	}

	engine := &retrieval.Engine{
		RAG: &retrieval.RAGSource{
			Vectors:  vectors,
			Memories: memories,
			Embedder: embClient,
		},
		KAG: &retrieval.KAGSource{Graph: codeGraph},
		Graph: &retrieval.GraphRAGSource{
			Graph:    graphRAG,
			Vectors:  vectors,
			Embedder: embClient,
		},
		Cache: retrieval.NewResultCache(retrieval.CacheConfig{
			Enabled:    true,
			MaxEntries: cfg.GetCacheMaxEntries(),
			TTLMs:      int64(cfg.GetCacheTTLMs()),
		}),
		EmbeddingModel: embClient.Model(),
	}

	sc := scanner.New(codeGraph, nil)
	sc.Vectors = vectors
	sc.Embedder = codeEmbClient
	jobs := scanner.NewJobManager(sc, 2, 64)

	var watcher *scanner.Watcher
	if !cfg.DisableCodeWatch {
		if wd, err := os.Getwd(); err == nil {
			watcher, err = scanner.Start(ctx, sc, scanner.Config{RootPath: wd, Incremental: true, ExtractSummaries: true})
			if err != nil {
				slog.Warn("failed to start code watcher", "error", err)
			}
		}
	}

	httpTransport := transport.NewHTTPTransport(cfg.HTTPAddr, engine, sc, jobs)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		if watcher != nil {
			watcher.Stop()
		}
		jobs.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpTransport.Shutdown(shutdownCtx)
	}()

	slog.Info("ctxeng starting", "http-addr", cfg.HTTPAddr, "db-path", cfg.DbPath, "vector-backend", cfg.GetVectorBackend())
	if err := httpTransport.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server run error: %v", err)
	}
}
