package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *codegraph.Store {
	t.Helper()
	s, err := codegraph.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExtractEntityCandidates(t *testing.T) {
	got := extractEntityCandidates("how does UserController handle login and where is parseConfig(")
	require.Contains(t, got, "UserController")
	require.Contains(t, got, "parseConfig")
}

func TestToKebabCase(t *testing.T) {
	require.Equal(t, "user-controller", toKebabCase("UserController"))
	require.Equal(t, "parse-config", toKebabCase("parseConfig"))
}

func TestRunEntitySubStageExactNameMatch(t *testing.T) {
	ctx := context.Background()
	graph := newTestGraph(t)
	now := time.Now()
	node := model.CodeNode{
		ID: model.NodeID("auth.go", model.CodeNodeFunction, "AuthenticateUser"),
		Type: model.CodeNodeFunction, Name: "AuthenticateUser", FilePath: "auth.go",
		Signature: "func AuthenticateUser(ctx context.Context, token string) error",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, graph.UpsertNode(ctx, node))

	k := &KAGSource{Graph: graph}
	sections, err := k.runEntitySubStage(ctx, "walk me through AuthenticateUser")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "Code: AuthenticateUser", sections[0].Title)
	require.Equal(t, model.SourceKAG, sections[0].Source)
	require.InDelta(t, 0.8, sections[0].Relevance, 1e-9)
}

func TestRunEntitySubStageKebabFilePathMatch(t *testing.T) {
	ctx := context.Background()
	graph := newTestGraph(t)
	now := time.Now()
	node := model.CodeNode{
		ID: model.NodeID("src/user-controller.ts", model.CodeNodeModule, "src/user-controller.ts"),
		Type: model.CodeNodeModule, Name: "src/user-controller.ts", FilePath: "src/user-controller.ts",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, graph.UpsertNode(ctx, node))

	k := &KAGSource{Graph: graph}
	sections, err := k.runEntitySubStage(ctx, "what does UserController do")
	require.NoError(t, err)
	require.Len(t, sections, 1)
}

func TestRunEntitySubStageInterfaceEmitsImplementations(t *testing.T) {
	ctx := context.Background()
	graph := newTestGraph(t)
	now := time.Now()
	iface := model.CodeNode{ID: model.NodeID("x.go", model.CodeNodeInterface, "Reader"), Type: model.CodeNodeInterface, Name: "Reader", FilePath: "x.go", CreatedAt: now, UpdatedAt: now}
	impl := model.CodeNode{ID: model.NodeID("y.go", model.CodeNodeClass, "FileReader"), Type: model.CodeNodeClass, Name: "FileReader", FilePath: "y.go", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, graph.UpsertNode(ctx, iface))
	require.NoError(t, graph.UpsertNode(ctx, impl))
	require.NoError(t, graph.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: impl.ID, ToNode: iface.ID, EdgeType: model.EdgeImplements, CreatedAt: now}))

	k := &KAGSource{Graph: graph}
	sections, err := k.runEntitySubStage(ctx, "what implements Reader")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "Implementations: Reader", sections[1].Title)
	require.InDelta(t, 0.7, sections[1].Relevance, 1e-9)
}

func TestGenerateHintsFiltersWeakTerms(t *testing.T) {
	hints := generateHints("where is the file that handles authentication logic")
	require.Contains(t, hints, "authentication")
	require.NotContains(t, hints, "the")
	require.NotContains(t, hints, "file")
	require.Contains(t, hints, "logic")
}

func TestIsExcludedFile(t *testing.T) {
	require.True(t, isExcludedFile("internal/foo/foo_test.go"))
	require.True(t, isExcludedFile("src/components/node_modules/x.js"))
	require.False(t, isExcludedFile("internal/foo/foo.go"))
}

func TestLexicalFileScoreExactFilenameWins(t *testing.T) {
	exact := lexicalFileScore("internal/auth/authenticate.go", []string{"authenticate"}, nil, 0)
	substr := lexicalFileScore("internal/authenticate/helpers.go", []string{"authenticate"}, nil, 0)
	require.Greater(t, exact, substr)
}

func TestRunFileLookupSubStageRanksLexicalOverTraversal(t *testing.T) {
	ctx := context.Background()
	graph := newTestGraph(t)
	now := time.Now()

	target := model.CodeNode{ID: model.NodeID("internal/auth/authenticate.go", model.CodeNodeModule, "internal/auth/authenticate.go"), Type: model.CodeNodeModule, Name: "internal/auth/authenticate.go", FilePath: "internal/auth/authenticate.go", CreatedAt: now, UpdatedAt: now}
	neighbor := model.CodeNode{ID: model.NodeID("internal/auth/session.go", model.CodeNodeModule, "internal/auth/session.go"), Type: model.CodeNodeModule, Name: "internal/auth/session.go", FilePath: "internal/auth/session.go", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, graph.UpsertNode(ctx, target))
	require.NoError(t, graph.UpsertNode(ctx, neighbor))
	require.NoError(t, graph.UpsertEdge(ctx, model.CodeEdge{ID: "e1", FromNode: target.ID, ToNode: neighbor.ID, EdgeType: model.EdgeImports, CreatedAt: now}))

	k := &KAGSource{Graph: graph}
	sections, err := k.runFileLookupSubStage(ctx, "where is authenticate defined", 10)
	require.NoError(t, err)
	require.NotEmpty(t, sections)
	require.Equal(t, "File: internal/auth/authenticate.go", sections[0].Title)
}

func TestKAGSourceRunFallsBackToFileLookupWhenEntityStageEmpty(t *testing.T) {
	ctx := context.Background()
	graph := newTestGraph(t)
	now := time.Now()
	node := model.CodeNode{ID: model.NodeID("internal/billing/invoice.go", model.CodeNodeModule, "internal/billing/invoice.go"), Type: model.CodeNodeModule, Name: "internal/billing/invoice.go", FilePath: "internal/billing/invoice.go", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, graph.UpsertNode(ctx, node))

	k := &KAGSource{Graph: graph}
	sections, err := k.Run(ctx, "how does invoice billing work", 5)
	require.NoError(t, err)
	require.NotEmpty(t, sections)
}
