package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docleaai/doclea-mcp-sub003/internal/codegraph"
	"github.com/docleaai/doclea-mcp-sub003/internal/model"
	"github.com/docleaai/doclea-mcp-sub003/internal/tokenizer"
)

var (
	identifierCandidatePattern = regexp.MustCompile(`\b([A-Z][A-Za-z0-9]*|[a-z][A-Za-z0-9]*[A-Z][A-Za-z0-9]*)\b|\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	kebabSuffixPattern         = regexp.MustCompile(`-(controller|service|model|module)$`)
)

// extractEntityCandidates finds camelCase/PascalCase identifiers and
// identifiers immediately followed by "(", per spec.md §4.8(a).
func extractEntityCandidates(query string) []string {
	matches := identifierCandidatePattern.FindAllStringSubmatch(query, -1)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

var filenameExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// lookupCandidate resolves one identifier candidate to a code node using
// the name-variant family spec.md §4.8(a) describes: the original symbol
// name first (most specific), then filename-shaped kebab-case variants.
func lookupCandidate(ctx context.Context, graph *codegraph.Store, candidate string) (*model.CodeNode, error) {
	nodes, err := graph.FindNodesByName(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if len(nodes) > 0 {
		return &nodes[0], nil
	}

	kebab := toKebabCase(candidate)
	nodes, err = graph.FindNodesByName(ctx, kebab)
	if err != nil {
		return nil, err
	}
	if len(nodes) > 0 {
		return &nodes[0], nil
	}

	for _, ext := range filenameExtensions {
		nodes, err = graph.FindNodesByFilePathSuffix(ctx, kebab+ext)
		if err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			return &nodes[0], nil
		}
	}

	if m := kebabSuffixPattern.FindStringSubmatch(kebab); m != nil {
		base := strings.TrimSuffix(kebab, "-"+m[1])
		dotForm := base + "." + m[1]
		for _, variant := range []string{base, dotForm} {
			nodes, err = graph.FindNodesByName(ctx, variant)
			if err != nil {
				return nil, err
			}
			if len(nodes) > 0 {
				return &nodes[0], nil
			}
			for _, ext := range filenameExtensions {
				nodes, err = graph.FindNodesByFilePathSuffix(ctx, variant+ext)
				if err != nil {
					return nil, err
				}
				if len(nodes) > 0 {
					return &nodes[0], nil
				}
			}
		}
	}
	return nil, nil
}

// runEntitySubStage implements spec.md §4.8(a).
func (k *KAGSource) runEntitySubStage(ctx context.Context, query string) ([]model.ContextSection, error) {
	candidates := extractEntityCandidates(query)
	queryTerms := tokenizer.ExtractQueryTerms(query)
	var sections []model.ContextSection
	for _, candidate := range candidates {
		node, err := lookupCandidate(ctx, k.Graph, candidate)
		if err != nil {
			return nil, fmt.Errorf("kag entity stage: lookup %s: %w", candidate, err)
		}
		if node == nil {
			continue
		}

		callers, err := k.Graph.Callers(ctx, node.ID)
		if err != nil {
			return nil, fmt.Errorf("kag entity stage: callers of %s: %w", node.ID, err)
		}
		callees, err := k.Graph.Callees(ctx, node.ID)
		if err != nil {
			return nil, fmt.Errorf("kag entity stage: callees of %s: %w", node.ID, err)
		}
		if len(callers) > 5 {
			callers = callers[:5]
		}
		if len(callees) > 5 {
			callees = callees[:5]
		}

		sections = append(sections, buildCodeSection(*node, callers, callees, queryTerms))

		if node.Type == model.CodeNodeInterface {
			impls, err := k.Graph.FindImplementations(ctx, node.ID)
			if err != nil {
				return nil, fmt.Errorf("kag entity stage: implementations of %s: %w", node.ID, err)
			}
			if len(impls) > 5 {
				impls = impls[:5]
			}
			sections = append(sections, buildImplementationsSection(*node, impls, queryTerms))
		}
	}
	return sections, nil
}

func buildCodeSection(node model.CodeNode, callers, callees []model.CodeNode, queryTerms []string) model.ContextSection {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n", node.Name, node.FilePath)
	if node.Signature != "" {
		fmt.Fprintf(&sb, "\n`%s`\n", node.Signature)
	}
	if node.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", node.Summary)
	}
	if len(callers) > 0 {
		sb.WriteString("\nCallers:\n")
		for _, c := range callers {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.FilePath)
		}
	}
	if len(callees) > 0 {
		sb.WriteString("\nCallees:\n")
		for _, c := range callees {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.FilePath)
		}
	}
	content := sb.String()
	matched := tokenizer.FindMatchedTerms(queryTerms, []string{node.Name, node.FilePath, node.Signature, node.Summary})
	return model.ContextSection{
		ID:        node.ID,
		Title:     "Code: " + node.Name,
		Content:   content,
		Tokens:    tokenizer.CountTokens(content),
		Relevance: 0.8,
		Source:    model.SourceKAG,
		Evidence: model.SectionEvidence{
			Reason:     fmt.Sprintf("call graph match for %s, %d callers, %d callees", node.Name, len(callers), len(callees)),
			QueryTerms: matched,
			CodeNodeID: node.ID,
		},
	}
}

func buildImplementationsSection(iface model.CodeNode, impls []model.CodeNode, queryTerms []string) model.ContextSection {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Implementations of **%s**:\n", iface.Name)
	for _, impl := range impls {
		fmt.Fprintf(&sb, "- %s (%s)\n", impl.Name, impl.FilePath)
	}
	content := sb.String()
	matched := tokenizer.FindMatchedTerms(queryTerms, []string{iface.Name, iface.FilePath})
	return model.ContextSection{
		ID:        iface.ID + ":implementations",
		Title:     "Implementations: " + iface.Name,
		Content:   content,
		Tokens:    tokenizer.CountTokens(content),
		Relevance: 0.7,
		Source:    model.SourceKAG,
		Evidence: model.SectionEvidence{
			Reason:     fmt.Sprintf("%d implementations of %s", len(impls), iface.Name),
			QueryTerms: matched,
			CodeNodeID: iface.ID,
		},
	}
}

// toKebabCase converts a camelCase/PascalCase identifier to kebab-case.
func toKebabCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
