// Package embedclient wraps pkg/embedder.Embedder so identical (text, model)
// pairs share one in-flight call, per spec.md §5 ("the first request
// performs the work, subsequent requests await its completion").
package embedclient

import (
	"context"

	"github.com/docleaai/doclea-mcp-sub003/pkg/embedder"
	"golang.org/x/sync/singleflight"
)

// Client de-duplicates concurrent EmbedQuery calls for the same text under
// the same model, grounded on the golang.org/x/sync usage pattern mined
// from the intelligencedev-manifold/MrWong99-glyphoxa pack repos.
type Client struct {
	embedder embedder.Embedder
	model    string
	group    singleflight.Group
}

// New wraps embedder under the given model identifier, used as part of the
// de-dup key and surfaced to C13's cache key.
func New(e embedder.Embedder, model string) *Client {
	return &Client{embedder: e, model: model}
}

// Model returns the identifier this client was constructed with.
func (c *Client) Model() string { return c.model }

// Dimension delegates to the wrapped embedder.
func (c *Client) Dimension() int { return c.embedder.Dimension() }

// EmbedQuery de-dupes concurrent calls for the same text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.model + "\x00" + text
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedDocuments is not de-duplicated — batches are assumed to already be
// distinct content the scanner is writing once.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embedder.EmbedDocuments(ctx, texts)
}
