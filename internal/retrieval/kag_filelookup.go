package retrieval

import (
	"context"
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/tokenizer"
)

// fileLookupPattern matches the file-lookup phrasings of spec.md §4.8(b).
var fileLookupPattern = regexp.MustCompile(`(?i)` +
	`in which files|which files|file paths|exact file paths|` +
	`where\s+\S+\s+(defined|implemented|written|located)|` +
	`list\s+\S+\s+files|` +
	`(trace|map|traverse|follow)\s+\S+\s+(flow|pipeline|chain|files|paths|implementation)|` +
	`end[- ]to[- ]end|` +
	`across\s+\S+\s+(apps|packages|services)`)

// weakTerms never form a file-lookup hint on their own: too generic to
// discriminate one source file from another.
var weakTerms = map[string]struct{}{
	"files": {}, "file": {}, "paths": {}, "path": {}, "exact": {}, "where": {},
	"across": {}, "include": {}, "using": {}, "modules": {}, "module": {},
	"define": {}, "defined": {}, "imported": {}, "referenced": {}, "query": {},
	"queries": {}, "mutation": {}, "mutations": {}, "code": {},
}

var excludedFileSuffixes = []string{
	"_test.go", ".test.ts", ".test.tsx", ".test.js", ".spec.ts", ".spec.js",
	".d.ts", ".min.js", ".generated.go", ".pb.go",
}

var excludedFileSegments = []string{
	"/node_modules/", "/dist/", "/build/", "/coverage/", "/vendor/", "/.git/",
}

const maxHints = 24

// runFileLookupSubStage implements spec.md §4.8(b): hint generation,
// per-file lexical scoring, and graph-expansion of the top lexical anchors.
func (k *KAGSource) runFileLookupSubStage(ctx context.Context, query string, limit int) ([]model.ContextSection, error) {
	hints := generateHints(query)
	if len(hints) == 0 {
		return nil, nil
	}
	longTerms := longQueryTerms(query)

	allPaths, err := k.Graph.AllFilePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("kag file-lookup stage: list files: %w", err)
	}
	counts, err := k.Graph.FilePathCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("kag file-lookup stage: path counts: %w", err)
	}

	type scoredFile struct {
		filePath string
		score    float64
	}
	var lexical []scoredFile
	for _, p := range allPaths {
		if isExcludedFile(p) {
			continue
		}
		score := lexicalFileScore(p, hints, longTerms, counts[p])
		if score <= 0 {
			continue
		}
		lexical = append(lexical, scoredFile{filePath: p, score: score})
	}
	sort.Slice(lexical, func(i, j int) bool { return lexical[i].score > lexical[j].score })

	anchorCount := 8
	if anchorCount > len(lexical) {
		anchorCount = len(lexical)
	}
	anchors := lexical[:anchorCount]

	weights, err := k.Graph.FileEdgeWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("kag file-lookup stage: edge weights: %w", err)
	}

	anchorSet := make(map[string]struct{}, len(anchors))
	anchorScore := make(map[string]float64, len(anchors))
	for _, a := range anchors {
		anchorSet[a.filePath] = struct{}{}
		anchorScore[a.filePath] = a.score
	}

	// traversalBoost is spec.md §4.8(b)'s "min(6, (2..18 × edge weighting) × 0.45)",
	// applied per anchor-to-neighbor edge weight.
	traversalBoost := make(map[string]float64)
	for _, a := range anchors {
		for neighbor, weight := range weights[a.filePath] {
			if _, isAnchor := anchorSet[neighbor]; isAnchor {
				boost := math.Min(6, float64(clampWeight(weight))*0.45)
				anchorScore[a.filePath] = math.Min(anchorScore[a.filePath]+4, anchorScore[a.filePath]+math.Min(4, boost*0.4))
				continue
			}
			boost := math.Min(6, float64(clampWeight(weight))*0.45)
			if boost > traversalBoost[neighbor] {
				traversalBoost[neighbor] = boost
			}
			anchorScore[a.filePath] += math.Min(4, boost*0.4)
		}
	}
	lexicalSlots := int(math.Round(float64(limit) * 0.7))
	if lexicalSlots < 1 && limit > 0 {
		lexicalSlots = 1
	}
	traversalSlots := limit - lexicalSlots
	if traversalSlots < 0 {
		traversalSlots = 0
	}

	var sections []model.ContextSection
	used := make(map[string]struct{})

	for i := 0; i < len(lexical) && len(sections) < lexicalSlots; i++ {
		f := lexical[i]
		score := f.score
		if boosted, ok := anchorScore[f.filePath]; ok {
			score = boosted
		}
		sections = append(sections, buildFileSection(f.filePath, score, hints, longTerms, counts[f.filePath], false))
		used[f.filePath] = struct{}{}
	}

	type traversalCandidate struct {
		filePath string
		boost    float64
	}
	var traversalCandidates []traversalCandidate
	for fp, boost := range traversalBoost {
		if _, already := used[fp]; already {
			continue
		}
		if isExcludedFile(fp) {
			continue
		}
		traversalCandidates = append(traversalCandidates, traversalCandidate{filePath: fp, boost: boost})
	}
	sort.Slice(traversalCandidates, func(i, j int) bool { return traversalCandidates[i].boost > traversalCandidates[j].boost })

	for i := 0; i < len(traversalCandidates) && len(sections)-lexicalSlots < traversalSlots && len(sections) < limit; i++ {
		c := traversalCandidates[i]
		sections = append(sections, buildFileSection(c.filePath, c.boost, hints, longTerms, counts[c.filePath], true))
	}

	return sections, nil
}

func clampWeight(w int) int {
	if w < 2 {
		return 2
	}
	if w > 18 {
		return 18
	}
	return w
}

// longQueryTerms returns lowercased query terms of length >= 4, used by
// lexicalFileScore's path-occurrence bonus.
func longQueryTerms(query string) []string {
	var out []string
	for _, t := range tokenizer.ExtractQueryTerms(query) {
		if len(t) >= 4 {
			out = append(out, t)
		}
	}
	return out
}

// generateHints builds the bounded hint list spec.md §4.8(b) describes:
// long (>=5) non-weak query terms, bi/tri-gram joins of adjacent non-weak
// terms, and kebab-cased entity candidates with their suffix-stripped
// bases.
func generateHints(query string) []string {
	terms := tokenizer.ExtractQueryTerms(query)
	seen := make(map[string]struct{})
	var hints []string
	add := func(h string) {
		h = strings.ToLower(h)
		if h == "" {
			return
		}
		if _, weak := weakTerms[h]; weak {
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		hints = append(hints, h)
	}

	var nonWeak []string
	for _, t := range terms {
		if _, weak := weakTerms[t]; weak {
			continue
		}
		nonWeak = append(nonWeak, t)
		if len(t) >= 5 {
			add(t)
		}
	}

	for i := 0; i < len(nonWeak)-1 && len(hints) < maxHints; i++ {
		a, b := nonWeak[i], nonWeak[i+1]
		add(a + "-" + b)
		add(a + "_" + b)
		add(a + b)
	}
	for i := 0; i < len(nonWeak)-2 && len(hints) < maxHints; i++ {
		a, b, c := nonWeak[i], nonWeak[i+1], nonWeak[i+2]
		add(a + "-" + b + "-" + c)
	}

	for _, candidate := range extractEntityCandidates(query) {
		kebab := toKebabCase(candidate)
		add(kebab)
		if m := kebabSuffixPattern.FindStringSubmatch(kebab); m != nil {
			add(strings.TrimSuffix(kebab, "-"+m[1]))
		}
		if len(hints) >= maxHints {
			break
		}
	}

	if len(hints) > maxHints {
		hints = hints[:maxHints]
	}
	return hints
}

func isExcludedFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, suffix := range excludedFileSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, segment := range excludedFileSegments {
		if strings.Contains(lower, segment) {
			return true
		}
	}
	return false
}

// lexicalFileScore implements spec.md §4.8(b)'s per-hint tiered formula:
// exact filename match max(10,min(20,len+7)); path-segment match
// max(8,min(18,len+5)); substring match max(3,min(10,len/2)); plus a
// bonus for long query terms found anywhere in the path, a node-count
// bonus, and a longest-hint bonus.
func lexicalFileScore(filePath string, hints []string, longTerms []string, nodeCount int) float64 {
	base := strings.ToLower(path.Base(filePath))
	baseNoExt := strings.TrimSuffix(base, path.Ext(base))
	lowerPath := strings.ToLower(filePath)
	segments := strings.Split(lowerPath, "/")

	var score float64
	var longestHint int
	var matched bool
	for _, hint := range hints {
		n := float64(len(hint))
		switch {
		case baseNoExt == hint || base == hint:
			score += clampF(10, 20, n+7)
		case containsSegment(segments, hint):
			score += clampF(8, 18, n+5)
		case strings.Contains(lowerPath, hint):
			score += clampF(3, 10, math.Floor(n/2))
		default:
			continue
		}
		matched = true
		if len(hint) > longestHint {
			longestHint = len(hint)
		}
	}
	if !matched {
		return 0
	}

	termHits := 0
	for _, t := range longTerms {
		if strings.Contains(lowerPath, t) {
			termHits++
		}
	}
	score += 2.5 * float64(termHits)
	score += math.Min(3, float64(nodeCount)*0.1)
	score += math.Min(4, float64(longestHint)*0.15)
	return score
}

// clampF returns max(lo, min(hi, v)).
func clampF(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsSegment(segments []string, hint string) bool {
	for _, s := range segments {
		if s == hint || strings.HasPrefix(s, hint+".") {
			return true
		}
	}
	return false
}

func buildFileSection(filePath string, score float64, hints []string, queryTerms []string, nodeCount int, fromTraversal bool) model.ContextSection {
	hintMatches := 0
	lowerPath := strings.ToLower(filePath)
	for _, h := range hints {
		if strings.Contains(lowerPath, h) {
			hintMatches++
		}
	}

	relevance := math.Min(0.92, 0.75+float64(hintMatches)*0.04)
	matched := tokenizer.FindMatchedTerms(queryTerms, []string{filePath})

	content := fmt.Sprintf("**%s**\n\n%d indexed code nodes in this file.", filePath, nodeCount)
	reason := fmt.Sprintf("lexical file match (score %.2f, %d hint matches)", score, hintMatches)
	if fromTraversal {
		reason = fmt.Sprintf("reached via call/import graph from a lexically matched anchor file (boost %.2f)", score)
	}

	return model.ContextSection{
		ID:        "file:" + filePath,
		Title:     "File: " + filePath,
		Content:   content,
		Tokens:    tokenizer.CountTokens(content),
		Relevance: relevance,
		Source:    model.SourceKAG,
		Evidence: model.SectionEvidence{
			QueryTerms: matched,
			Reason: reason,
		},
	}
}
