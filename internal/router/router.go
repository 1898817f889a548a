// Package router implements the C6 Route Classifier (spec.md §4.6): a pure
// function mapping a query and the caller's enabled sources to a route and
// the fixed source ratios that reproduce comparative benchmarks.
package router

import (
	"regexp"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
)

// Config is the output of Classify: the chosen route plus the ratios and
// per-source limits C7/C8/C9 use to size their requests.
type Config struct {
	Route          model.Route
	RAGRatio       float64
	KAGRatio       float64
	GraphRAGRatio  float64
	RAGLimit       int
	GraphRAGLimit  int
}

var (
	codeTokenPattern = regexp.MustCompile(`\b(call|callers|callee|calls|dependency|dependencies|import|implementation|implements|interface|class|function|method|impact|affected|break|references|definition)\b`)
	traversalVerbs   = regexp.MustCompile(`\b(trace|traverse|map|follow|flow|pipeline|chain|end-to-end|across)\b`)
	fileListPattern  = regexp.MustCompile(`\b(which|what|list|show)\b.*\b(files|paths)\b`)
	crossBoundary    = regexp.MustCompile(`\b(across|between)\b.*\b(apps|packages|services|modules)\b`)
	identifierCall   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	memoryTokens     = regexp.MustCompile(`\b(decision|why|reason|tradeoff|history|adr|note|context|previous|past|policy|convention)\b`)
)

// hasCodeIntent reports whether the query matches any code-intent signal
// named in spec.md §4.6.
func hasCodeIntent(lower string) bool {
	return codeTokenPattern.MatchString(lower) ||
		traversalVerbs.MatchString(lower) ||
		fileListPattern.MatchString(lower) ||
		crossBoundary.MatchString(lower) ||
		identifierCall.MatchString(lower)
}

func hasMemoryIntent(lower string) bool {
	return memoryTokens.MatchString(lower)
}

// ratioRow is one row of the exact ratio table spec.md §4.6 mandates.
type ratioRow struct {
	route                        model.Route
	includeCodeGraph, includeGraphRAG bool
	rag, kag, graphrag           float64
	ragLimit, graphragLimit      int
}

var ratioTable = []ratioRow{
	{model.RouteMemory, false, false, 1.00, 0.00, 0.00, 20, 0},
	{model.RouteCode, true, true, 0.20, 0.65, 0.15, 8, 6},
	{model.RouteCode, true, false, 0.25, 0.75, 0.00, 8, 0},
	{model.RouteCode, false, true, 0.80, 0.00, 0.20, 12, 6},
	{model.RouteMemory, true, true, 0.75, 0.10, 0.15, 20, 8},
	{model.RouteMemory, true, false, 0.90, 0.10, 0.00, 20, 0},
	{model.RouteMemory, false, true, 0.85, 0.00, 0.15, 20, 8},
	{model.RouteHybrid, true, true, 0.55, 0.30, 0.15, 16, 7},
	{model.RouteHybrid, true, false, 0.70, 0.30, 0.00, 16, 0},
	{model.RouteHybrid, false, true, 0.80, 0.00, 0.20, 18, 7},
}

// Classify is the C6 pure function.
func Classify(query string, includeCodeGraph, includeGraphRAG bool) Config {
	lower := strings.ToLower(query)
	code := hasCodeIntent(lower)
	mem := hasMemoryIntent(lower)

	var route model.Route
	switch {
	case code && !mem:
		route = model.RouteCode
	case mem && !code:
		route = model.RouteMemory
	default:
		route = model.RouteHybrid
	}

	for _, row := range ratioTable {
		if row.route == route && row.includeCodeGraph == includeCodeGraph && row.includeGraphRAG == includeGraphRAG {
			cfg := Config{
				Route: route, RAGRatio: row.rag, KAGRatio: row.kag, GraphRAGRatio: row.graphrag,
				RAGLimit: row.ragLimit, GraphRAGLimit: row.graphragLimit,
			}
			return normalize(cfg)
		}
	}
	// includeCodeGraph=false and includeGraphRAG=false together only has a
	// table row for route=memory: with both extra sources disabled, KAG
	// and GraphRAG could never be queried regardless of classified route,
	// so every route degrades to an all-RAG config while keeping the
	// classified route label for observability.
	return normalize(Config{Route: route, RAGRatio: 1, RAGLimit: 20})
}

// normalize ensures the three ratios sum to 1 and are non-negative, per
// spec.md §4.6 ("summing to 1 (normalized if not) and all non-negative").
func normalize(cfg Config) Config {
	if cfg.RAGRatio < 0 {
		cfg.RAGRatio = 0
	}
	if cfg.KAGRatio < 0 {
		cfg.KAGRatio = 0
	}
	if cfg.GraphRAGRatio < 0 {
		cfg.GraphRAGRatio = 0
	}
	sum := cfg.RAGRatio + cfg.KAGRatio + cfg.GraphRAGRatio
	if sum <= 0 {
		cfg.RAGRatio = 1
		return cfg
	}
	if sum != 1 {
		cfg.RAGRatio /= sum
		cfg.KAGRatio /= sum
		cfg.GraphRAGRatio /= sum
	}
	return cfg
}
