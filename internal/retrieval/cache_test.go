package retrieval

import (
	"testing"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyInvariantToMapOrder(t *testing.T) {
	a := CacheKeyInput{
		Query:   "how does auth work",
		Filters: vectorstore.Filters{Tags: []string{"b", "a"}, RelatedFiles: []string{"y.go", "x.go"}},
		ScoringConfigKey: ScoringConfigKey(map[string]float64{"rag": 0.7, "kag": 0.3}),
	}
	b := CacheKeyInput{
		Query:   "How Does Auth Work",
		Filters: vectorstore.Filters{Tags: []string{"a", "b"}, RelatedFiles: []string{"x.go", "y.go"}},
		ScoringConfigKey: ScoringConfigKey(map[string]float64{"kag": 0.3, "rag": 0.7}),
	}
	require.Equal(t, CacheKey(a), CacheKey(b))
}

func TestCacheKeyDiffersOnQuery(t *testing.T) {
	a := CacheKeyInput{Query: "foo"}
	b := CacheKeyInput{Query: "bar"}
	require.NotEqual(t, CacheKey(a), CacheKey(b))
}

func TestCacheGetSetRoundTrip(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60000})
	c.Set("k1", "value1", []string{"mem1"})

	got, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "value1", got)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(0), stats.Misses)
}

func TestCacheMissWhenDisabled(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: false, MaxEntries: 10, TTLMs: 60000})
	c.Set("k1", "value1", nil)
	_, ok := c.Get("k1")
	require.False(t, ok)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 1})
	c.Set("k1", "value1", nil)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k1")
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: true, MaxEntries: 2, TTLMs: 60000})
	c.Set("k1", "v1", nil)
	c.Set("k2", "v2", nil)

	_, _ = c.Get("k1") // k1 now most recently used, k2 is LRU

	c.Set("k3", "v3", nil)

	_, ok := c.Get("k2")
	require.False(t, ok, "k2 should have been evicted as least recently used")

	_, ok = c.Get("k1")
	require.True(t, ok)
	_, ok = c.Get("k3")
	require.True(t, ok)

	require.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheInvalidateByMemoryID(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60000})
	c.Set("k1", "v1", []string{"mem1", "mem2"})
	c.Set("k2", "v2", []string{"mem3"})

	c.InvalidateMemory("mem2")

	_, ok := c.Get("k1")
	require.False(t, ok)
	_, ok = c.Get("k2")
	require.True(t, ok)

	require.Equal(t, int64(1), c.Stats().Invalidations)
}

func TestCacheHitRateComputation(t *testing.T) {
	c := NewResultCache(CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60000})
	c.Set("k1", "v1", nil)

	_, _ = c.Get("k1")
	_, _ = c.Get("k1")
	_, _ = c.Get("missing")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 2.0/3.0, stats.HitRate, 0.0001)
}
