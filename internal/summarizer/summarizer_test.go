package summarizer

import (
	"testing"

	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
	"github.com/stretchr/testify/require"
)

func TestSummarizePrefersDocstring(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "Foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		DocString:  "Foo does the thing.\n\nMore detail here.",
		SourceCode: "// ignored\nfunc Foo() {}",
	}
	r := Summarize(sym, DefaultConfig())
	require.Equal(t, GeneratedByDocstring, r.GeneratedBy)
	require.Equal(t, 0.9, r.Confidence)
	require.Equal(t, "Foo does the thing.", r.Summary)
}

func TestSummarizeFallsBackToLeadingComment(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		SourceCode: "// does a thing\nfunc foo() {}",
	}
	r := Summarize(sym, DefaultConfig())
	require.Equal(t, GeneratedByComment, r.GeneratedBy)
	require.Equal(t, 0.7, r.Confidence)
	require.Equal(t, "does a thing", r.Summary)
}

func TestSummarizeFallsBackToSignature(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		SourceCode: "func foo() {}",
	}
	r := Summarize(sym, DefaultConfig())
	require.Equal(t, GeneratedBySignature, r.GeneratedBy)
	require.Equal(t, 0.5, r.Confidence)
	require.Equal(t, "Function foo", r.Summary)
}

func TestSummarizeNeedsAISummaryOnLowConfidence(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		SourceCode: "func foo() {}",
	}
	r := Summarize(sym, DefaultConfig())
	require.True(t, r.NeedsAISummary, "signature-tier confidence 0.5 is below the 0.6 default threshold")
}

func TestSummarizeNeedsAISummaryForExportedEvenAtHighConfidence(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "Foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		DocString: "Foo does the thing.",
	}
	r := Summarize(sym, DefaultConfig())
	require.Equal(t, 0.9, r.Confidence)
	require.True(t, r.NeedsAISummary, "exported Go symbols prefer an AI summary under the default config")
}

func TestSummarizeUnexportedHighConfidenceSkipsAI(t *testing.T) {
	sym := &treesitter.CodeSymbol{
		Name: "foo", SymbolType: treesitter.SymbolTypeFunction, Language: treesitter.LanguageGo,
		DocString: "foo does the thing.",
	}
	r := Summarize(sym, DefaultConfig())
	require.False(t, r.NeedsAISummary)
}

func TestApplyWriteBackSetsAIFields(t *testing.T) {
	r := ApplyWriteBack(WriteBack{NodeID: "n1", Summary: "ai summary"})
	require.Equal(t, GeneratedByAI, r.GeneratedBy)
	require.Equal(t, 0.95, r.Confidence)
	require.False(t, r.NeedsAISummary)
	require.Equal(t, "ai summary", r.Summary)
}
