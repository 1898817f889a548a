// Package summarizer implements the C4.13 Code Summarizer: it turns a
// parsed treesitter.CodeSymbol into the {summary, generatedBy,
// confidence} triple C5 persists and C8 later surfaces, plus the narrow
// AI write-back path for hybrid-mode summarization.
package summarizer

import (
	"regexp"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
)

// GeneratedBy tags how a summary was produced.
type GeneratedBy string

const (
	GeneratedByDocstring GeneratedBy = "docstring"
	GeneratedByComment   GeneratedBy = "comment"
	GeneratedBySignature GeneratedBy = "signature"
	GeneratedByAI        GeneratedBy = "ai"
)

// Result is the C4.13 output for one code symbol.
type Result struct {
	Summary        string
	GeneratedBy    GeneratedBy
	Confidence     float64
	NeedsAISummary bool
}

// Config controls the hybrid-mode needsAiSummary decision.
type Config struct {
	MinConfidenceThreshold float64
	PreferAIForExported    bool
}

// DefaultConfig matches the teacher's indexer defaults for "don't call
// out to an LLM unless the cheap tiers came up weak."
func DefaultConfig() Config {
	return Config{MinConfidenceThreshold: 0.6, PreferAIForExported: true}
}

const (
	confidenceDocstring = 0.9
	confidenceComment   = 0.7
	confidenceSignature = 0.5
	confidenceAI        = 0.95
)

// firstLineComment matches a `//`, `#`, or `/* ... */`-style single-line
// comment immediately preceding the symbol, independent of language.
var firstLineComment = regexp.MustCompile(`^\s*(//|#|/\*)\s*(.*?)\s*(\*/)?\s*$`)

// exportMarkers are the language-specific tokens spec.md §4.13 names for
// exported/public detection.
var exportMarkers = []string{"export", "public", "pub "}

// Summarize implements spec.md §4.13's three-tier extraction: a
// language-appropriate structured doc comment first, then a first-line
// comment within the symbol's first three source lines, then a
// signature-derived fallback.
func Summarize(sym *treesitter.CodeSymbol, cfg Config) Result {
	if doc := strings.TrimSpace(sym.DocString); doc != "" {
		return finish(Result{Summary: firstParagraph(doc), GeneratedBy: GeneratedByDocstring, Confidence: confidenceDocstring}, sym, cfg)
	}

	if comment, ok := leadingComment(sym.SourceCode); ok {
		return finish(Result{Summary: comment, GeneratedBy: GeneratedByComment, Confidence: confidenceComment}, sym, cfg)
	}

	return finish(Result{
		Summary:     signatureSummary(sym),
		GeneratedBy: GeneratedBySignature,
		Confidence:  confidenceSignature,
	}, sym, cfg)
}

func finish(r Result, sym *treesitter.CodeSymbol, cfg Config) Result {
	exported := isExported(sym)
	r.NeedsAISummary = r.Confidence < cfg.MinConfidenceThreshold || (exported && cfg.PreferAIForExported)
	return r
}

// leadingComment looks at the first three lines of a symbol's source text
// for a single-line comment, per spec.md §4.13 ("a first-line line
// comment within the first three lines").
func leadingComment(source string) (string, bool) {
	lines := strings.Split(source, "\n")
	limit := 3
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		m := firstLineComment.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func firstParagraph(doc string) string {
	if idx := strings.Index(doc, "\n\n"); idx >= 0 {
		doc = doc[:idx]
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc), " "))
}

// signatureSummary builds the `"Function|Class|Code unit <name>"` fallback
// spec.md §4.13 names verbatim.
func signatureSummary(sym *treesitter.CodeSymbol) string {
	kind := "Code unit"
	switch sym.SymbolType {
	case treesitter.SymbolTypeFunction, treesitter.SymbolTypeMethod, treesitter.SymbolTypeConstructor:
		kind = "Function"
	case treesitter.SymbolTypeClass, treesitter.SymbolTypeStruct, treesitter.SymbolTypeInterface, treesitter.SymbolTypeTrait:
		kind = "Class"
	}
	return kind + " " + sym.Name
}

// isExported keys on the language-specific markers spec.md §4.13 names
// (export, public, pub) appearing in the symbol's signature.
func isExported(sym *treesitter.CodeSymbol) bool {
	sig := strings.ToLower(sym.Signature)
	for _, marker := range exportMarkers {
		if strings.Contains(sig, marker) {
			return true
		}
	}
	// Go has no export keyword; an uppercase first rune is its marker.
	if sym.Language == treesitter.LanguageGo && sym.Name != "" {
		first := sym.Name[0]
		if first >= 'A' && first <= 'Z' {
			return true
		}
	}
	return false
}

// WriteBack is the narrow AI write-back capability: {nodeId, summary} in,
// mutating nothing but returning the fields C5 should persist.
type WriteBack struct {
	NodeID  string
	Summary string
}

// ApplyWriteBack turns an AI-produced summary into the Result shape C5
// writes to the graph store: generatedBy=ai, confidence=0.95,
// needsAiSummary cleared.
func ApplyWriteBack(wb WriteBack) Result {
	return Result{Summary: wb.Summary, GeneratedBy: GeneratedByAI, Confidence: confidenceAI, NeedsAISummary: false}
}
