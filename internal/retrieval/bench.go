package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
)

// BenchConfig configures one C14 benchmark run over a fixed query set.
type BenchConfig struct {
	Queries                  []Request
	WarmupRuns               int
	RunsPerQuery             int
	CompareAgainstMemoryOnly bool
}

// RunStat is the min/max/avg/percentile summary spec.md §4.15 requires,
// computed over a set of observed durations.
type RunStat struct {
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// OverheadRatio is the comparison-mode ratio spec.md §4.15 reports when
// CompareAgainstMemoryOnly is set: code-sources-enabled latency divided
// by memory-only latency at matching percentiles.
type OverheadRatio struct {
	P50 float64
	P95 float64
	P99 float64
}

// BenchResult is the summary spec.md §4.15 produces for one benchmark
// run: total latency overall and broken down by route, per-stage latency
// across all routes, plus the cache hit rate observed during the measured
// runs.
type BenchResult struct {
	Total      RunStat
	ByRoute    map[model.Route]RunStat
	ByStage    map[string]RunStat
	CacheHits  int
	CacheTotal int
	Overhead   *OverheadRatio
}

type measurement struct {
	route    model.Route
	total    time.Duration
	stages   map[string]time.Duration
	cacheHit bool
}

// Benchmark runs cfg.WarmupRuns unmeasured passes over every query
// (warming embedding/vector caches) followed by cfg.RunsPerQuery measured
// passes, recording per-stage and total latency plus the cache hit/miss
// for each measured run. When CompareAgainstMemoryOnly is set, the same
// query set is run a second time with both code sources disabled and the
// two latency distributions are compared via OverheadRatio.
func Benchmark(ctx context.Context, engine *Engine, cfg BenchConfig) (BenchResult, error) {
	for i := 0; i < cfg.WarmupRuns; i++ {
		for _, req := range cfg.Queries {
			if _, err := engine.Retrieve(ctx, req); err != nil {
				return BenchResult{}, fmt.Errorf("benchmark: warmup run: %w", err)
			}
		}
	}

	measurements, err := measure(ctx, engine, cfg.Queries, cfg.RunsPerQuery)
	if err != nil {
		return BenchResult{}, err
	}

	result := summarize(measurements)

	if cfg.CompareAgainstMemoryOnly {
		memoryOnly := make([]Request, len(cfg.Queries))
		for i, req := range cfg.Queries {
			memoryOnly[i] = req
			memoryOnly[i].IncludeCodeGraph = false
			memoryOnly[i].IncludeGraphRAG = false
		}
		baseline, err := measure(ctx, engine, memoryOnly, cfg.RunsPerQuery)
		if err != nil {
			return BenchResult{}, fmt.Errorf("benchmark: memory-only comparison: %w", err)
		}
		baselineStat := summarize(baseline).Total
		result.Overhead = &OverheadRatio{
			P50: overheadRatio(result.Total.P50, baselineStat.P50),
			P95: overheadRatio(result.Total.P95, baselineStat.P95),
			P99: overheadRatio(result.Total.P99, baselineStat.P99),
		}
	}

	return result, nil
}

func measure(ctx context.Context, engine *Engine, queries []Request, runsPerQuery int) ([]measurement, error) {
	var out []measurement
	for _, req := range queries {
		for i := 0; i < runsPerQuery; i++ {
			start := time.Now()
			resp, err := engine.Retrieve(ctx, req)
			total := time.Since(start)
			if err != nil {
				return nil, fmt.Errorf("benchmark: measured run: %w", err)
			}

			stages := make(map[string]time.Duration, len(resp.Metadata.StageTimings))
			for _, st := range resp.Metadata.StageTimings {
				stages[st.Stage] = st.Duration
			}

			out = append(out, measurement{
				route:    resp.Metadata.Route,
				total:    total,
				stages:   stages,
				cacheHit: resp.Metadata.CacheHit,
			})
		}
	}
	return out, nil
}

func summarize(measurements []measurement) BenchResult {
	var totals []time.Duration
	byRoute := make(map[model.Route][]time.Duration)
	byStage := make(map[string][]time.Duration)

	result := BenchResult{ByRoute: make(map[model.Route]RunStat), ByStage: make(map[string]RunStat)}

	for _, m := range measurements {
		totals = append(totals, m.total)
		byRoute[m.route] = append(byRoute[m.route], m.total)
		for stage, d := range m.stages {
			byStage[stage] = append(byStage[stage], d)
		}
		result.CacheTotal++
		if m.cacheHit {
			result.CacheHits++
		}
	}

	result.Total = computeStat(totals)
	for route, durs := range byRoute {
		result.ByRoute[route] = computeStat(durs)
	}
	for stage, durs := range byStage {
		result.ByStage[stage] = computeStat(durs)
	}
	return result
}

func computeStat(durs []time.Duration) RunStat {
	if len(durs) == 0 {
		return RunStat{}
	}
	sorted := make([]time.Duration, len(durs))
	copy(sorted, durs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return RunStat{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / time.Duration(len(sorted)),
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

// percentile assumes sorted is already ascending; it uses nearest-rank on
// a zero-indexed slice, clamped to the last element.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// minOverheadDenominatorMs is spec.md §4.15's guarded denominator: below
// this, a ratio would be dominated by measurement noise rather than real
// cost, so the ratio is reported as 0 instead of an inflated number.
const minOverheadDenominatorMs = 0.01

func overheadRatio(withCode, memoryOnly time.Duration) float64 {
	memMs := memoryOnly.Seconds() * 1000
	if memMs < minOverheadDenominatorMs {
		return 0
	}
	return (withCode.Seconds() * 1000) / memMs
}
