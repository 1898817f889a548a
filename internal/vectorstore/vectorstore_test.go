package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltersEmpty(t *testing.T) {
	assert.True(t, Filters{}.Empty())
	assert.False(t, Filters{Type: "decision"}.Empty())
	assert.False(t, Filters{Tags: []string{"x"}}.Empty())
	assert.False(t, Filters{RelatedFiles: []string{"a.go"}}.Empty())
}

func TestMatchFiltersConjunction(t *testing.T) {
	p := Payload{Type: "decision", Tags: []string{"auth", "jwt"}, RelatedFiles: []string{"auth.go"}}

	assert.True(t, matchFilters(Filters{Type: "decision"}, p))
	assert.False(t, matchFilters(Filters{Type: "solution"}, p))
	assert.True(t, matchFilters(Filters{Tags: []string{"jwt"}}, p))
	assert.False(t, matchFilters(Filters{Tags: []string{"other"}}, p))
	assert.True(t, matchFilters(Filters{Type: "decision", Tags: []string{"auth"}, RelatedFiles: []string{"auth.go"}}, p))
	assert.False(t, matchFilters(Filters{Type: "decision", RelatedFiles: []string{"nope.go"}}, p))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny([]string{"a", "b", "c"}, []string{"z", "b"}))
	assert.False(t, containsAny([]string{"a", "b", "c"}, []string{"x", "y"}))
	assert.False(t, containsAny(nil, []string{"x"}))
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(nil, Config{Backend: "bogus"})
	assert.Error(t, err)
}
