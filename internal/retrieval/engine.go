package retrieval

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/router"
	"github.com/docleaai/doclea-mcp-sub003/internal/tokenizer"
	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

// Request is the Retrieve request shape from spec.md §6.
type Request struct {
	Query            string
	TokenBudget      int
	IncludeCodeGraph bool
	IncludeGraphRAG  bool
	Filters          vectorstore.Filters
	Template         Template
	IncludeEvidence  bool
}

const (
	minTokenBudget     = 100
	maxTokenBudget     = 100000
	defaultTokenBudget = 4000
)

// normalize fills in the request defaults spec.md §6 names and clamps
// tokenBudget to its documented range.
func (r Request) normalize() Request {
	if r.TokenBudget == 0 {
		r.TokenBudget = defaultTokenBudget
	}
	if r.TokenBudget < minTokenBudget {
		r.TokenBudget = minTokenBudget
	}
	if r.TokenBudget > maxTokenBudget {
		r.TokenBudget = maxTokenBudget
	}
	if r.Template == "" {
		r.Template = TemplateDefault
	}
	return r
}

// StageTiming records how long one pipeline stage took for a single
// request, surfaced in Metadata.StageTimings per spec.md §7 ("all timings
// are reported even on partial failure").
type StageTiming struct {
	Stage    string
	Duration time.Duration
	Err      string
}

// Metadata is the Retrieve response metadata shape from spec.md §6/§4.12.
type Metadata struct {
	TotalTokens      int
	SectionsIncluded int
	RAGSections      int
	KAGSections      int
	GraphRAGSections int
	Truncated        bool
	Route            model.Route
	StageTimings     []StageTiming
	CacheHit         bool
}

// Response is the Retrieve response shape from spec.md §6.
type Response struct {
	Context  string
	Metadata Metadata
	Evidence []EvidenceRecord
}

// Engine wires C6 through C13 into the single Retrieve entry point:
// classify the route, fan the three sources out in parallel via
// errgroup (structured concurrency per spec.md §5), rerank, pack, format,
// and cache the result keyed on the full request shape.
type Engine struct {
	RAG   *RAGSource
	KAG   *KAGSource
	Graph *GraphRAGSource
	Cache *ResultCache

	EmbeddingModel string
	ScoringWeights map[string]float64
}

// Retrieve runs the full pipeline for req. ctx's deadline bounds every
// blocking call; if ctx is cancelled mid-flight the response carries
// whatever sources completed, Truncated=true, and is never written to
// the cache.
func (e *Engine) Retrieve(ctx context.Context, req Request) (Response, error) {
	req = req.normalize()

	key := e.cacheKey(req)
	if e.Cache != nil {
		if cached, ok := e.Cache.Get(key); ok {
			resp := cached.(Response)
			resp.Metadata.CacheHit = true
			return resp, nil
		}
	}

	if req.Query == "" {
		return Response{Context: "No relevant context found", Metadata: Metadata{Truncated: false}}, nil
	}

	cfg := router.Classify(req.Query, req.IncludeCodeGraph, req.IncludeGraphRAG)

	var timings []StageTiming
	var ragSections, kagSections, graphSections []model.ContextSection
	var ragErr, kagErr, graphErr error

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RAGRatio > 0 {
		g.Go(func() error {
			start := time.Now()
			sections, err := e.RAG.Run(gctx, req.Query, req.Filters, cfg.RAGLimit)
			timings = append(timings, stageTiming("rag", start, err))
			if err != nil {
				ragErr = err
				return nil // per spec.md §7, a single source failure never fails the request
			}
			ragSections = sections
			return nil
		})
	}

	if req.IncludeCodeGraph && cfg.KAGRatio > 0 && e.KAG != nil {
		g.Go(func() error {
			start := time.Now()
			sections, err := e.KAG.Run(gctx, req.Query, kagLimit(cfg))
			timings = append(timings, stageTiming("kag", start, err))
			if err != nil {
				kagErr = err
				return nil
			}
			kagSections = sections
			return nil
		})
	}

	if req.IncludeGraphRAG && cfg.GraphRAGRatio > 0 && e.Graph != nil {
		g.Go(func() error {
			start := time.Now()
			sections, err := e.Graph.Run(gctx, req.Query, cfg.GraphRAGLimit)
			timings = append(timings, stageTiming("graphrag", start, err))
			if err != nil {
				graphErr = err
				return nil
			}
			graphSections = sections
			return nil
		})
	}

	_ = g.Wait() // never returns non-nil: every Go closure swallows its own error

	truncated := ctx.Err() != nil
	allFailed := ragErr != nil && kagErr != nil && graphErr != nil &&
		len(ragSections)+len(kagSections)+len(graphSections) == 0

	candidates := make([]model.ContextSection, 0, len(ragSections)+len(kagSections)+len(graphSections))
	candidates = append(candidates, ragSections...)
	candidates = append(candidates, kagSections...)
	candidates = append(candidates, graphSections...)

	if len(candidates) == 0 {
		resp := Response{
			Context: "No relevant context found",
			Metadata: Metadata{
				Truncated:    truncated || allFailed,
				Route:        cfg.Route,
				StageTimings: sortedTimings(timings),
			},
		}
		return resp, nil
	}

	rerankStart := time.Now()
	ranked := Rerank(cfg, candidates)
	timings = append(timings, stageTiming("rerank", rerankStart, nil))

	packStart := time.Now()
	packed := Pack(ranked, req.TokenBudget)
	timings = append(timings, stageTiming("pack", packStart, nil))

	formatStart := time.Now()
	display := DisplayOrder(packed)
	context := Format(req.Query, display, req.Template)
	timings = append(timings, stageTiming("format", formatStart, nil))

	meta := Metadata{
		SectionsIncluded: len(display),
		Truncated:        truncated || packTruncated(packed),
		Route:            cfg.Route,
		StageTimings:     sortedTimings(timings),
	}
	for _, s := range display {
		meta.TotalTokens += s.Tokens
		switch s.Source {
		case model.SourceRAG:
			meta.RAGSections++
		case model.SourceKAG:
			meta.KAGSections++
		case model.SourceGraphRAG:
			meta.GraphRAGSections++
		}
	}

	resp := Response{Context: context, Metadata: meta}
	if req.IncludeEvidence {
		resp.Evidence = BuildEvidence(packed)
	}

	if e.Cache != nil && ctx.Err() == nil {
		e.Cache.Set(key, resp, memoryIDsOf(packed))
	}

	return resp, nil
}

func stageTiming(stage string, start time.Time, err error) StageTiming {
	t := StageTiming{Stage: stage, Duration: time.Since(start)}
	stageDurationSeconds.WithLabelValues(stage).Observe(t.Duration.Seconds())
	if err != nil {
		t.Err = err.Error()
	}
	return t
}

func sortedTimings(timings []StageTiming) []StageTiming {
	out := make([]StageTiming, len(timings))
	copy(out, timings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

func packTruncated(packed []PackedSection) bool {
	for _, p := range packed {
		if !p.Included {
			return true
		}
	}
	return false
}

func memoryIDsOf(packed []PackedSection) []string {
	var ids []string
	for _, p := range packed {
		if id := p.Reranked.Section.Evidence.MemoryID; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// kagLimit sizes KAG's candidate budget. RAG and GraphRAG carry an explicit
// limit from the classifier and KAG does not, so KAG reuses the route's
// RAGLimit, or 8 when that is zero; KAGRatio does not enter into it.
func kagLimit(cfg router.Config) int {
	if cfg.RAGLimit > 0 {
		return cfg.RAGLimit
	}
	return 8
}

func (e *Engine) cacheKey(req Request) string {
	return CacheKey(CacheKeyInput{
		Query:            req.Query,
		Filters:          req.Filters,
		TokenBudget:      req.TokenBudget,
		IncludeCodeGraph: req.IncludeCodeGraph,
		IncludeGraphRAG:  req.IncludeGraphRAG,
		Template:         string(req.Template),
		IncludeEvidence:  req.IncludeEvidence,
		EmbeddingModel:   e.EmbeddingModel,
		ScoringConfigKey: ScoringConfigKey(e.ScoringWeights),
	})
}

// InvalidateMemory forwards a memory store/update/delete event to the
// result cache so every cache entry built from that memory's id is
// dropped, per spec.md §4.14.
func (e *Engine) InvalidateMemory(id string) {
	if e.Cache != nil {
		e.Cache.InvalidateMemory(id)
	}
}
