// Package model holds the data types shared across storage, retrieval, and
// scanning components: memories, code graph nodes/edges, GraphRAG entities,
// and the transient context sections assembled per request.
package model

import (
	"fmt"
	"time"
)

// MemoryType is the tagged variant for a stored memory.
type MemoryType string

const (
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeSolution     MemoryType = "solution"
	MemoryTypePattern      MemoryType = "pattern"
	MemoryTypeArchitecture MemoryType = "architecture"
	MemoryTypeNote         MemoryType = "note"
)

// Memory is a single project memory owned by the relational store. The
// vector index holds one point per memory keyed by VectorID; deleting the
// relational row does not delete that point, which callers remove separately.
type Memory struct {
	ID               string     `json:"id"`
	Type             MemoryType `json:"type"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Summary          string     `json:"summary,omitempty"`
	Importance       float64    `json:"importance"`
	Tags             []string   `json:"tags,omitempty"`
	RelatedFiles     []string   `json:"related_files,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	AccessedAt       time.Time  `json:"accessed_at"`
	AccessCount      int        `json:"access_count"`
	VectorID         string     `json:"vector_id,omitempty"`
	LastRefreshedAt  *time.Time `json:"last_refreshed_at,omitempty"`
}

// MaxRelatedFiles is the per-deployment cap on Memory.RelatedFiles (see
// DESIGN.md Open Question #3).
const MaxRelatedFiles = 32

// CodeNodeType is the tagged variant for a code graph node.
type CodeNodeType string

const (
	CodeNodeModule    CodeNodeType = "module"
	CodeNodeFunction  CodeNodeType = "function"
	CodeNodeClass     CodeNodeType = "class"
	CodeNodeInterface CodeNodeType = "interface"
	CodeNodeMethod    CodeNodeType = "method"
	CodeNodeType_     CodeNodeType = "type"
)

// CodeNode is a single code graph node. Its ID is the stable string
// "<filePath>:<type>:<name>" — every downstream component joins on it.
type CodeNode struct {
	ID         string                 `json:"id"`
	Type       CodeNodeType           `json:"type"`
	Name       string                 `json:"name"`
	FilePath   string                 `json:"file_path"`
	StartLine  int                    `json:"start_line,omitempty"`
	EndLine    int                    `json:"end_line,omitempty"`
	Signature  string                 `json:"signature,omitempty"`
	Summary    string                 `json:"summary,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// NodeID builds the stable node identity for a code node.
func NodeID(filePath string, nodeType CodeNodeType, name string) string {
	return filePath + ":" + string(nodeType) + ":" + name
}

// CodeEdgeType is the tagged variant for a code graph edge.
type CodeEdgeType string

const (
	EdgeCalls      CodeEdgeType = "calls"
	EdgeImports    CodeEdgeType = "imports"
	EdgeImplements CodeEdgeType = "implements"
	EdgeExtends    CodeEdgeType = "extends"
	EdgeReferences CodeEdgeType = "references"
)

// CodeEdge is a single code graph edge. (FromNode, ToNode, EdgeType) is
// unique.
type CodeEdge struct {
	ID        string                 `json:"id"`
	FromNode  string                 `json:"from_node"`
	ToNode    string                 `json:"to_node"`
	EdgeType  CodeEdgeType           `json:"edge_type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// FileHash is the content-addressed gate for incremental scans.
type FileHash struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityType is the tagged variant for a GraphRAG entity.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityTechnology   EntityType = "TECHNOLOGY"
	EntityConcept      EntityType = "CONCEPT"
	EntityLocation     EntityType = "LOCATION"
	EntityEvent        EntityType = "EVENT"
	EntityProduct      EntityType = "PRODUCT"
	EntityOther        EntityType = "OTHER"
)

// GraphEntity is a named entity in the knowledge graph.
type GraphEntity struct {
	ID                    string     `json:"id"`
	CanonicalName         string     `json:"canonical_name"`
	EntityType            EntityType `json:"entity_type"`
	Description           string     `json:"description,omitempty"`
	MentionCount          int        `json:"mention_count"`
	ExtractionConfidence  float64    `json:"extraction_confidence"`
	FirstSeenAt           time.Time  `json:"first_seen_at"`
	LastSeenAt            time.Time  `json:"last_seen_at"`
	EmbeddingID           string     `json:"embedding_id,omitempty"`
}

// Relationship is an edge between two GraphEntity rows. Undirected for
// community detection; directed when traversed.
type Relationship struct {
	ID               string    `json:"id"`
	SourceEntityID   string    `json:"source_entity_id"`
	TargetEntityID   string    `json:"target_entity_id"`
	RelationshipType string    `json:"relationship_type"`
	Strength         float64   `json:"strength"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Community groups entities for report summarization.
type Community struct {
	ID          string  `json:"id"`
	Level       int     `json:"level"`
	ParentID    string  `json:"parent_id,omitempty"`
	EntityCount int     `json:"entity_count"`
}

// ShortID truncates a community id to 8 characters for display only.
func (c Community) ShortID() string {
	if len(c.ID) <= 8 {
		return c.ID
	}
	return c.ID[:8]
}

// Report is the one-to-one summary attached to a Community.
type Report struct {
	CommunityID string   `json:"community_id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	FullContent string   `json:"full_content"`
	KeyFindings []string `json:"key_findings,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
}

// ContextSourceTag is the tagged variant for where a ContextSection came
// from.
type ContextSourceTag string

const (
	SourceRAG      ContextSourceTag = "rag"
	SourceKAG      ContextSourceTag = "kag"
	SourceGraphRAG ContextSourceTag = "graphrag"
)

// Route is the high-level intent class that sets source ratios.
type Route string

const (
	RouteMemory Route = "memory"
	RouteCode   Route = "code"
	RouteHybrid Route = "hybrid"
)

// ContextSection is a transient, bounded, tokenized chunk of content
// produced by a source and never persisted.
type ContextSection struct {
	ID        string
	Title     string
	Content   string
	Tokens    int
	Relevance float64
	Source    ContextSourceTag
	Evidence  SectionEvidence
}

// SectionEvidence is the per-section audit trail a source attaches to a
// ContextSection, later enriched by the reranker and packer.
type SectionEvidence struct {
	Reason      string
	QueryTerms  []string
	MemoryID    string
	CodeNodeID  string
	EntityID    string
}

// CodeChunk is one overlapping slice of a CodeNode whose source is too
// large to embed as a single unit (spec.md §9 symbol-level chunking).
// Each chunk gets its own vector point in the vector store, payload-tagged
// with NodeID so a chunk hit can be resolved back to its parent symbol.
type CodeChunk struct {
	ID         string `json:"id"`
	NodeID     string `json:"node_id"`
	FilePath   string `json:"file_path"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkCount int    `json:"chunk_count"`
	Content    string `json:"content"`
}

// ChunkID builds the stable vector-point id for one code chunk.
func ChunkID(nodeID string, index int) string {
	return fmt.Sprintf("%s:chunk:%d", nodeID, index)
}
