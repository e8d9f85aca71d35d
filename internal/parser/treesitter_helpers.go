package parser

import sitter "github.com/tree-sitter/go-tree-sitter"

// nodeText returns the source slice covered by node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// children returns the direct children of node as a slice.
func children(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.ChildCount())
	for i := uint(0); i < node.ChildCount(); i++ {
		out = append(out, node.Child(i))
	}
	return out
}

// findChildByKind returns the first direct child with the given kind.
func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	for _, c := range children(node) {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// findChildrenByKind returns every direct child with the given kind.
func findChildrenByKind(node *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range children(node) {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// findDescendantByKind returns the first node (possibly node itself)
// matching kind found via depth-first search.
func findDescendantByKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	for _, c := range children(node) {
		if found := findDescendantByKind(c, kind); found != nil {
			return found
		}
	}
	return nil
}

// walkTree recursively visits node and its descendants. If visitor returns
// false for a node, that node's children are not visited.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for _, c := range children(node) {
		walkTree(c, visitor)
	}
}

func startLine(node *sitter.Node) int { return int(node.StartPosition().Row) + 1 }
func endLine(node *sitter.Node) int   { return int(node.EndPosition().Row) + 1 }
