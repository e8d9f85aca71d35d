package parser

import (
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CallGraph is a directed multigraph over symbol names, collapsed to a set
// of distinct callees per caller.
type CallGraph struct {
	edges map[string]map[string]bool
}

func newCallGraph() *CallGraph {
	return &CallGraph{edges: make(map[string]map[string]bool)}
}

// AddEdge records caller -> callee.
func (g *CallGraph) AddEdge(caller, callee string) {
	set, ok := g.edges[caller]
	if !ok {
		set = make(map[string]bool)
		g.edges[caller] = set
	}
	set[callee] = true
}

// Callees returns, in sorted order, the distinct functions caller calls.
func (g *CallGraph) Callees(caller string) []string {
	set := g.edges[caller]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Callers returns, in sorted order, every function that calls callee.
func (g *CallGraph) Callers(callee string) []string {
	var out []string
	for caller, callees := range g.edges {
		if callees[callee] {
			out = append(out, caller)
		}
	}
	sort.Strings(out)
	return out
}

// HasCall reports whether caller directly calls callee.
func (g *CallGraph) HasCall(caller, callee string) bool {
	return g.edges[caller][callee]
}

// EdgeCount returns the total number of distinct caller->callee edges.
func (g *CallGraph) EdgeCount() int {
	n := 0
	for _, set := range g.edges {
		n += len(set)
	}
	return n
}

// AllFunctions returns every function name appearing as a caller or callee,
// sorted.
func (g *CallGraph) AllFunctions() []string {
	seen := make(map[string]bool)
	for caller, callees := range g.edges {
		seen[caller] = true
		for callee := range callees {
			seen[callee] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// extractCallGraph walks node, tracking the enclosing function name, and
// records an edge for every call expression encountered within it.
func extractCallGraph(node *sitter.Node, source []byte, graph *CallGraph, currentFunction string) {
	switch node.Kind() {
	case "function_item":
		if name := functionName(node, source); name != "" {
			for _, c := range children(node) {
				extractCallGraph(c, source, graph, name)
			}
			return
		}
	case "call_expression":
		if currentFunction != "" {
			if callee := callTarget(node, source); callee != "" {
				graph.AddEdge(currentFunction, callee)
			}
		}
	}
	for _, c := range children(node) {
		extractCallGraph(c, source, graph, currentFunction)
	}
}

func functionName(node *sitter.Node, source []byte) string {
	if n := findChildByKind(node, "identifier"); n != nil {
		return nodeText(n, source)
	}
	return ""
}

// callTarget resolves the callee name of a call_expression: the method name
// for method calls, the last path segment for scoped/associated calls, the
// bare identifier for direct calls.
func callTarget(node *sitter.Node, source []byte) string {
	for _, c := range children(node) {
		switch c.Kind() {
		case "identifier":
			return nodeText(c, source)
		case "field_expression":
			if field := findChildByKind(c, "field_identifier"); field != nil {
				return nodeText(field, source)
			}
		case "scoped_identifier":
			idents := append(findChildrenByKind(c, "identifier"), findChildrenByKind(c, "type_identifier")...)
			if len(idents) > 0 {
				last := idents[0]
				for _, id := range idents {
					if id.StartByte() > last.StartByte() {
						last = id
					}
				}
				return nodeText(last, source)
			}
		case "generic_function":
			for _, gc := range children(c) {
				if gc.Kind() == "identifier" || gc.Kind() == "scoped_identifier" {
					return callTargetFromNode(gc, source)
				}
			}
		}
	}
	return ""
}

// callTargetFromNode resolves a callee name directly from an
// identifier/scoped_identifier node, used when recursing through
// generic_function wrappers.
func callTargetFromNode(node *sitter.Node, source []byte) string {
	switch node.Kind() {
	case "identifier":
		return nodeText(node, source)
	case "scoped_identifier":
		idents := append(findChildrenByKind(node, "identifier"), findChildrenByKind(node, "type_identifier")...)
		if len(idents) == 0 {
			return ""
		}
		last := idents[0]
		for _, id := range idents {
			if id.StartByte() > last.StartByte() {
				last = id
			}
		}
		return nodeText(last, source)
	}
	return ""
}
