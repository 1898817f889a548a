package embedclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int32
	delay time.Duration
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.calls, 1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&c.calls, 1)
	time.Sleep(c.delay)
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) Dimension() int { return 3 }

func TestEmbedQueryDeduplicatesConcurrentCalls(t *testing.T) {
	base := &countingEmbedder{delay: 20 * time.Millisecond}
	client := New(base, "test-model")

	var wg sync.WaitGroup
	results := make([][]float32, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := client.EmbedQuery(context.Background(), "same text")
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&base.calls))
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestEmbedQueryDifferentTextNotDeduped(t *testing.T) {
	base := &countingEmbedder{}
	client := New(base, "test-model")

	_, err := client.EmbedQuery(context.Background(), "a")
	require.NoError(t, err)
	_, err = client.EmbedQuery(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&base.calls))
}

func TestDimensionAndModel(t *testing.T) {
	base := &countingEmbedder{}
	client := New(base, "m1")
	assert.Equal(t, 3, client.Dimension())
	assert.Equal(t, "m1", client.Model())
}
