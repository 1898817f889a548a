package retrieval

import (
	"math"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/router"
)

// RerankedSection is one ranked candidate, carrying its original section
// plus the reranker's score and breakdown.
type RerankedSection struct {
	Section   model.ContextSection
	Rank      int
	Score     float64
	Breakdown RerankBreakdown
}

// RerankBreakdown is the four numeric components spec.md §4.10 requires
// the reranker to report per candidate, rounded to 4 decimals.
type RerankBreakdown struct {
	Semantic          float64
	SourceBalance     float64
	Novelty           float64
	RedundancyPenalty float64
}

var routeBoostTable = map[model.Route]map[model.ContextSourceTag]float64{
	model.RouteMemory: {model.SourceRAG: 0.08, model.SourceKAG: -0.04, model.SourceGraphRAG: 0.04},
	model.RouteCode:   {model.SourceRAG: -0.04, model.SourceKAG: 0.08, model.SourceGraphRAG: 0.04},
	model.RouteHybrid: {model.SourceRAG: 0, model.SourceKAG: 0, model.SourceGraphRAG: 0.02},
}

const streakPenalty = 0.05

// Rerank implements the C10 greedy fusion: while any candidate remains,
// select the one maximizing
//
//	score = 0.72*semantic + 0.18*sourceBalance + 0.10*novelty +
//	        routeBoost(route, source) - redundancyPenalty - streakPenalty
//
// Output is a permutation of the input with no duplicates or omissions.
func Rerank(cfg router.Config, candidates []model.ContextSection) []RerankedSection {
	route := cfg.Route
	remaining := make([]model.ContextSection, len(candidates))
	copy(remaining, candidates)

	targetShare := renormalizeTargetShares(cfg)
	sourceCounts := make(map[model.ContextSourceTag]int)
	total := 0
	seenTerms := make(map[string]struct{})

	var lastTwo []model.ContextSourceTag
	var out []RerankedSection

	for len(remaining) > 0 {
		maxRelevance := maxOf(remaining)

		bestIdx := -1
		var bestScore float64
		var bestBreakdown RerankBreakdown
		for i, cand := range remaining {
			semantic := cand.Relevance / maxRelevance

			currentShare := 0.0
			if total > 0 {
				currentShare = float64(sourceCounts[cand.Source]) / float64(total)
			}
			balance := clamp(targetShare[cand.Source]-currentShare, -1, 1)

			unseen, termCount := countUnseen(cand.Evidence.QueryTerms, seenTerms)
			novelty := 0.0
			if termCount > 0 {
				novelty = float64(unseen) / float64(termCount)
			}
			redundancy := 0.0
			if termCount > 0 {
				redundancy = (1 - novelty) * 0.08
			}

			boost := routeBoostTable[route][cand.Source]

			streak := 0.0
			if len(lastTwo) == 2 && lastTwo[0] == cand.Source && lastTwo[1] == cand.Source {
				streak = streakPenalty
			}

			score := 0.72*semantic + 0.18*balance + 0.10*novelty + boost - redundancy - streak
			if bestIdx == -1 || score > bestScore || (score == bestScore && semantic > bestBreakdown.Semantic) {
				bestIdx = i
				bestScore = score
				bestBreakdown = RerankBreakdown{
					Semantic:          round4(semantic),
					SourceBalance:     round4(balance),
					Novelty:           round4(novelty),
					RedundancyPenalty: round4(redundancy),
				}
			}
		}

		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		out = append(out, RerankedSection{
			Section:   chosen,
			Rank:      len(out) + 1,
			Score:     round4(bestScore),
			Breakdown: bestBreakdown,
		})

		sourceCounts[chosen.Source]++
		total++
		for _, t := range chosen.Evidence.QueryTerms {
			seenTerms[t] = struct{}{}
		}
		lastTwo = append(lastTwo, chosen.Source)
		if len(lastTwo) > 2 {
			lastTwo = lastTwo[len(lastTwo)-2:]
		}
	}

	return out
}

// renormalizeTargetShares converts the route's rag/kag/graphrag ratios
// into a source-keyed target-share map, renormalized to sum to 1.
func renormalizeTargetShares(cfg router.Config) map[model.ContextSourceTag]float64 {
	sum := cfg.RAGRatio + cfg.KAGRatio + cfg.GraphRAGRatio
	if sum <= 0 {
		return map[model.ContextSourceTag]float64{model.SourceRAG: 1}
	}
	return map[model.ContextSourceTag]float64{
		model.SourceRAG:      cfg.RAGRatio / sum,
		model.SourceKAG:      cfg.KAGRatio / sum,
		model.SourceGraphRAG: cfg.GraphRAGRatio / sum,
	}
}

func maxOf(sections []model.ContextSection) float64 {
	max := 0.0
	for _, s := range sections {
		if s.Relevance > max {
			max = s.Relevance
		}
	}
	if max < 1e-4 {
		return 1e-4
	}
	return max
}

func countUnseen(terms []string, seen map[string]struct{}) (unseen, total int) {
	total = len(terms)
	for _, t := range terms {
		if _, ok := seen[t]; !ok {
			unseen++
		}
	}
	return unseen, total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
