package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokensMonotonic(t *testing.T) {
	a := CountTokens("short text")
	b := CountTokens("short text plus quite a bit more content appended here")
	assert.Greater(t, b, a)
	assert.Equal(t, 0, CountTokens(""))
}

func TestCountTokensDeterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog repeatedly"
	require.Equal(t, CountTokens(text), CountTokens(text))
}

func TestExtractQueryTermsFiltersStopwordsAndShort(t *testing.T) {
	terms := ExtractQueryTerms("What did we decide about the Authentication and JWT flow?")
	assert.NotContains(t, terms, "did")
	assert.NotContains(t, terms, "we")
	assert.NotContains(t, terms, "the")
	assert.Contains(t, terms, "decide")
	assert.Contains(t, terms, "authentication")
	assert.Contains(t, terms, "jwt")
	assert.Contains(t, terms, "flow")
}

func TestExtractQueryTermsDedupesPreservingOrder(t *testing.T) {
	terms := ExtractQueryTerms("cache cache invalidation cache")
	require.Len(t, terms, 2)
	assert.Equal(t, "cache", terms[0])
	assert.Equal(t, "invalidation", terms[1])
}

func TestExtractQueryTermsOnlyStopwords(t *testing.T) {
	terms := ExtractQueryTerms("what is the how")
	assert.Empty(t, terms)
}

func TestFindMatchedTermsCapsAtSix(t *testing.T) {
	terms := []string{"one", "two", "three", "four", "five", "six", "seven"}
	haystack := []string{strings.Join(terms, " ")}
	matched := FindMatchedTerms(terms, haystack)
	assert.Len(t, matched, 6)
}

func TestFindMatchedTermsSubstring(t *testing.T) {
	matched := FindMatchedTerms([]string{"validate", "token"}, []string{"validateToken function signature"})
	assert.ElementsMatch(t, []string{"validate", "token"}, matched)
}
