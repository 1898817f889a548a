package retrieval

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docleaai/doclea-mcp-sub003/internal/vectorstore"
)

// CacheConfig mirrors spec.md §4.14's process-local LRU+TTL configuration.
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTLMs      int64
}

// CacheKeyInput is every field spec.md §4.14 says the cache key must be
// derived from. Field order here doesn't matter — CacheKey hashes each
// component independently and in a fixed sequence, so two calls differing
// only in map-iteration order (Filters.Tags/RelatedFiles, a caller-supplied
// scoring config) still produce identical keys.
type CacheKeyInput struct {
	Query            string
	Filters          vectorstore.Filters
	TokenBudget      int
	IncludeCodeGraph bool
	IncludeGraphRAG  bool
	Template         string
	IncludeEvidence  bool
	EmbeddingModel   string
	ScoringConfigKey string
}

// CacheKey builds a deterministic hash over a CacheKeyInput. Slice-valued
// fields are sorted before hashing so map/slice iteration order never
// affects the result.
func CacheKey(in CacheKeyInput) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s\n", normalizeQuery(in.Query))
	fmt.Fprintf(h, "type=%s\n", in.Filters.Type)
	fmt.Fprintf(h, "tags=%s\n", joinSorted(in.Filters.Tags))
	fmt.Fprintf(h, "files=%s\n", joinSorted(in.Filters.RelatedFiles))
	fmt.Fprintf(h, "budget=%d\n", in.TokenBudget)
	fmt.Fprintf(h, "codegraph=%t\n", in.IncludeCodeGraph)
	fmt.Fprintf(h, "graphrag=%t\n", in.IncludeGraphRAG)
	fmt.Fprintf(h, "template=%s\n", in.Template)
	fmt.Fprintf(h, "evidence=%t\n", in.IncludeEvidence)
	fmt.Fprintf(h, "model=%s\n", in.EmbeddingModel)
	fmt.Fprintf(h, "scoring=%s\n", in.ScoringConfigKey)
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func joinSorted(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	sorted := make([]string, len(vals))
	copy(sorted, vals)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

var (
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_cache_hits_total",
		Help: "Result cache hits.",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_cache_misses_total",
		Help: "Result cache misses.",
	})
	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_cache_evictions_total",
		Help: "Result cache LRU evictions.",
	})
	cacheInvalidationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrieval_cache_invalidations_total",
		Help: "Result cache entries removed by memory-keyed invalidation.",
	})
)

// cacheEntry is one LRU node; memoryIDs drives invalidation.
type cacheEntry struct {
	key          string
	value        interface{}
	memoryIDs    map[string]struct{}
	insertedAt   time.Time
	lastAccessAt time.Time
	elem         *list.Element
}

// ResultCache is the C13 process-local result cache: an LRU keyed by
// CacheKey with a per-entry TTL and memory-id-keyed invalidation,
// grounded on the pack's container/list-based MemoryCache pattern
// (2lar-b2's internal/infrastructure/cache) generalized from raw bytes to
// an arbitrary retrieval response value.
type ResultCache struct {
	mu      sync.Mutex
	cfg     CacheConfig
	entries map[string]*cacheEntry
	order   *list.List

	hits          int64
	misses        int64
	evictions     int64
	invalidations int64
}

// NewResultCache constructs a cache from cfg. If cfg.Enabled is false,
// every Get reports a miss and every Set is a no-op.
func NewResultCache(cfg CacheConfig) *ResultCache {
	return &ResultCache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
	}
}

// Get returns the cached value and true iff an unexpired entry exists for
// key, refreshing its recency on hit.
func (c *ResultCache) Get(key string) (interface{}, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		cacheMissesTotal.Inc()
		return nil, false
	}
	if time.Since(entry.insertedAt) >= time.Duration(c.cfg.TTLMs)*time.Millisecond {
		c.removeLocked(entry)
		c.misses++
		cacheMissesTotal.Inc()
		return nil, false
	}

	entry.lastAccessAt = time.Now()
	c.order.MoveToFront(entry.elem)
	c.hits++
	cacheHitsTotal.Inc()
	return entry.value, true
}

// Set inserts value under key, tagged with memoryIDs for later
// invalidation. Evicts the least-recently-used entry if over capacity.
func (c *ResultCache) Set(key string, value interface{}, memoryIDs []string) {
	if !c.cfg.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	}

	ids := make(map[string]struct{}, len(memoryIDs))
	for _, id := range memoryIDs {
		ids[id] = struct{}{}
	}
	now := time.Now()
	entry := &cacheEntry{key: key, value: value, memoryIDs: ids, insertedAt: now, lastAccessAt: now}
	entry.elem = c.order.PushFront(entry)
	c.entries[key] = entry

	for c.cfg.MaxEntries > 0 && len(c.entries) > c.cfg.MaxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*cacheEntry))
		c.evictions++
		cacheEvictionsTotal.Inc()
	}
}

// InvalidateMemory removes every cache entry whose memoryIDs contains id.
func (c *ResultCache) InvalidateMemory(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries {
		if _, ok := entry.memoryIDs[id]; ok {
			c.removeLocked(entry)
			c.invalidations++
			cacheInvalidationsTotal.Inc()
		}
	}
}

func (c *ResultCache) removeLocked(entry *cacheEntry) {
	c.order.Remove(entry.elem)
	delete(c.entries, entry.key)
}

// CacheStats is the cheap-to-read stats snapshot spec.md §4.14 requires.
type CacheStats struct {
	Hits           int64
	Misses         int64
	HitRate        float64
	CurrentEntries int
	Evictions      int64
	Invalidations  int64
}

// Stats returns a snapshot of the cache's counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Hits:           c.hits,
		Misses:         c.misses,
		HitRate:        hitRate,
		CurrentEntries: len(c.entries),
		Evictions:      c.evictions,
		Invalidations:  c.invalidations,
	}
}

// ScoringConfigKey derives a stable ScoringConfigKey from a weights map,
// independent of map iteration order.
func ScoringConfigKey(weights map[string]float64) string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(weights[k], 'f', -1, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}
