// Package tokenizer provides deterministic token counting and query-term
// extraction shared across sizing, budgeting, and truncation decisions.
package tokenizer

import (
	"strings"
	"unicode"
)

// stopwords never qualify as a query term on their own.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "has": {}, "was": {}, "were": {},
	"with": {}, "this": {}, "that": {}, "from": {}, "have": {}, "what": {},
	"which": {}, "who": {}, "when": {}, "where": {}, "how": {}, "why": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"about": {}, "into": {}, "over": {}, "than": {}, "then": {}, "them": {},
	"their": {}, "there": {}, "these": {}, "those": {}, "its": {}, "our": {},
	"your": {}, "per": {}, "via": {}, "out": {}, "use": {}, "used": {},
	"using": {}, "any": {}, "some": {}, "each": {}, "also": {}, "just": {},
}

// CountTokens returns a deterministic, approximate token count for text.
//
// The estimate blends a character-based heuristic (~4 chars/token, the
// common rule of thumb for English-like text) with a whitespace-token count
// and takes the larger of the two, so short strings of long identifiers
// (common in code) are never undercounted. The function is monotonic: never
// decreases if text grows by concatenation.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	charEstimate := (len(text) + 3) / 4
	wordCount := len(strings.Fields(text))
	if wordCount > charEstimate {
		return wordCount
	}
	return charEstimate
}

// ExtractQueryTerms lowercases, strips punctuation, drops short and
// stopword tokens, and dedupes while preserving first-seen order.
func ExtractQueryTerms(query string) []string {
	lower := strings.ToLower(query)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-_")
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// FindMatchedTerms returns up to 6 terms from terms that appear (as a
// substring) in any of haystacks, preserving terms' original order.
func FindMatchedTerms(terms []string, haystacks []string) []string {
	lowerHaystacks := make([]string, len(haystacks))
	for i, h := range haystacks {
		lowerHaystacks[i] = strings.ToLower(h)
	}

	var matched []string
	for _, term := range terms {
		for _, h := range lowerHaystacks {
			if strings.Contains(h, term) {
				matched = append(matched, term)
				break
			}
		}
		if len(matched) >= 6 {
			break
		}
	}
	return matched
}
