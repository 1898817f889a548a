package router

import (
	"testing"

	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyMemoryRoute(t *testing.T) {
	cfg := Classify("why did we decide to use JWT for auth?", false, false)
	assert.Equal(t, model.RouteMemory, cfg.Route)
	assert.Equal(t, 1.0, cfg.RAGRatio)
	assert.Equal(t, 20, cfg.RAGLimit)
}

func TestClassifyCodeRouteBothEnabled(t *testing.T) {
	cfg := Classify("who calls validateToken(", true, true)
	assert.Equal(t, model.RouteCode, cfg.Route)
	assert.Equal(t, 0.20, cfg.RAGRatio)
	assert.Equal(t, 0.65, cfg.KAGRatio)
	assert.Equal(t, 0.15, cfg.GraphRAGRatio)
	assert.Equal(t, 8, cfg.RAGLimit)
	assert.Equal(t, 6, cfg.GraphRAGLimit)
}

func TestClassifyCodeRouteCodeGraphOnly(t *testing.T) {
	cfg := Classify("which class implements Reader", true, false)
	assert.Equal(t, model.RouteCode, cfg.Route)
	assert.Equal(t, 0.25, cfg.RAGRatio)
	assert.Equal(t, 0.75, cfg.KAGRatio)
}

func TestClassifyHybridAmbiguous(t *testing.T) {
	cfg := Classify("what's going on with the login page", true, true)
	assert.Equal(t, model.RouteHybrid, cfg.Route)
	assert.Equal(t, 0.55, cfg.RAGRatio)
}

func TestClassifyNeitherExtraSourceDegradesToAllRAG(t *testing.T) {
	cfg := Classify("who calls doThing(", false, false)
	assert.Equal(t, model.RouteCode, cfg.Route)
	assert.Equal(t, 1.0, cfg.RAGRatio)
	assert.Equal(t, 0.0, cfg.KAGRatio)
	assert.Equal(t, 0.0, cfg.GraphRAGRatio)
}

func TestRatiosAlwaysSumToOne(t *testing.T) {
	queries := []string{
		"why did we choose postgres",
		"who calls processPayment(",
		"across services how does auth flow",
		"random ambiguous query text",
	}
	for _, q := range queries {
		for _, codeGraph := range []bool{true, false} {
			for _, graphRAG := range []bool{true, false} {
				cfg := Classify(q, codeGraph, graphRAG)
				sum := cfg.RAGRatio + cfg.KAGRatio + cfg.GraphRAGRatio
				assert.InDelta(t, 1.0, sum, 1e-9, "query=%q codeGraph=%v graphRAG=%v", q, codeGraph, graphRAG)
				assert.GreaterOrEqual(t, cfg.RAGRatio, 0.0)
				assert.GreaterOrEqual(t, cfg.KAGRatio, 0.0)
				assert.GreaterOrEqual(t, cfg.GraphRAGRatio, 0.0)
			}
		}
	}
}
