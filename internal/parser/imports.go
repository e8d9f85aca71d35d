package parser

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractImports appends one Import per `use` declaration found anywhere in
// the tree to result.Imports.
//
// The use_declaration's argument subtree is walked directly
// (scoped_identifier / use_list / use_wildcard / use_as_clause) so grouped
// imports separate path from items correctly.
func extractImports(root *sitter.Node, source []byte, result *ParseResult) {
	walkTree(root, func(n *sitter.Node) bool {
		if n.Kind() == "use_declaration" {
			if imp := parseUseDeclaration(n, source); imp != nil {
				result.Imports = append(result.Imports, *imp)
			}
			return false
		}
		return true
	})
}

// parseUseDeclaration interprets a use_declaration's argument, which is the
// first non-keyword, non-`;` child.
func parseUseDeclaration(node *sitter.Node, source []byte) *Import {
	for _, c := range children(node) {
		switch c.Kind() {
		case "use", ";":
			continue
		default:
			return parseUseTree(c, source, "")
		}
	}
	return nil
}

// parseUseTree interprets one use-tree node with an accumulated path prefix.
func parseUseTree(node *sitter.Node, source []byte, prefix string) *Import {
	switch node.Kind() {
	case "scoped_identifier", "identifier", "crate", "self", "super":
		path := joinPath(prefix, nodeText(node, source))
		return &Import{Path: path}

	case "scoped_use_list":
		// path::{items...}
		pathPart := node.ChildByFieldName("path")
		base := prefix
		if pathPart != nil {
			base = joinPath(prefix, nodeText(pathPart, source))
		}
		list := node.ChildByFieldName("list")
		if list == nil {
			list = findChildByKind(node, "use_list")
		}
		return &Import{Path: base, Items: useListItems(list, source)}

	case "use_wildcard":
		base := prefix
		for _, c := range children(node) {
			if c.Kind() != "*" {
				base = joinPath(prefix, nodeText(c, source))
			}
		}
		return &Import{Path: base, Glob: true}

	case "use_as_clause":
		pathNode := node.ChildByFieldName("path")
		if pathNode == nil {
			pathNode = node.Child(0)
		}
		aliasNode := node.ChildByFieldName("alias")
		if aliasNode == nil {
			aliasNode = findChildByKind(node, "identifier")
		}
		path := prefix
		if pathNode != nil {
			path = joinPath(prefix, nodeText(pathNode, source))
		}
		items := []string(nil)
		if aliasNode != nil {
			items = []string{nodeText(aliasNode, source)}
		}
		return &Import{Path: path, Items: items}

	case "use_list":
		return &Import{Path: prefix, Items: useListItems(node, source)}

	default:
		// Fall back to raw text for any shape not explicitly modeled.
		text := strings.TrimSuffix(nodeText(node, source), ";")
		return &Import{Path: joinPath(prefix, strings.TrimSpace(text))}
	}
}

func useListItems(list *sitter.Node, source []byte) []string {
	if list == nil {
		return nil
	}
	var items []string
	for _, c := range children(list) {
		switch c.Kind() {
		case "{", "}", ",":
			continue
		case "identifier", "type_identifier":
			items = append(items, nodeText(c, source))
		case "scoped_identifier":
			items = append(items, nodeText(c, source))
		case "use_as_clause":
			if alias := findChildByKind(c, "identifier"); alias != nil {
				items = append(items, nodeText(alias, source))
			}
		}
	}
	return items
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	if segment == "" {
		return prefix
	}
	return prefix + "::" + segment
}

// ExternalDependencies returns the distinct first path segment of every
// import in the result, sorted.
func (r *ParseResult) ExternalDependencies() []string {
	seen := make(map[string]bool)
	for _, imp := range r.Imports {
		first := imp.Path
		if idx := strings.Index(imp.Path, "::"); idx >= 0 {
			first = imp.Path[:idx]
		}
		if first != "" {
			seen[first] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
