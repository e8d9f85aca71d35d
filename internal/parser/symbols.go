package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractSymbols walks the tree and appends every top-level and
// impl/module-nested symbol it finds to result.Symbols.
func extractSymbols(root *sitter.Node, source []byte, result *ParseResult) {
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		var sym *Symbol
		switch node.Kind() {
		case "function_item":
			sym = extractFunction(node, source)
		case "struct_item":
			sym = extractNamed(node, source, "type_identifier", KindStruct)
		case "enum_item":
			sym = extractNamed(node, source, "type_identifier", KindEnum)
		case "trait_item":
			sym = extractNamed(node, source, "type_identifier", KindTrait)
		case "impl_item":
			sym = extractImpl(node, source)
		case "mod_item":
			sym = extractNamed(node, source, "identifier", KindModule)
		case "const_item":
			sym = extractNamed(node, source, "identifier", KindConstant)
		case "static_item":
			sym = extractNamed(node, source, "identifier", KindStatic)
		case "type_item":
			sym = extractNamed(node, source, "type_identifier", KindTypeAlias)
		}
		if sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		for _, c := range children(node) {
			visit(c)
		}
	}
	visit(root)
}

// extractNamed handles the symbol kinds whose shape is "find the name node,
// fill in range/visibility/docstring" with nothing kind-specific beyond that.
func extractNamed(node *sitter.Node, source []byte, nameKind string, kind SymbolKind) *Symbol {
	nameNode := findChildByKind(node, nameKind)
	if nameNode == nil {
		return nil
	}
	return &Symbol{
		Kind:       kind,
		Name:       nodeText(nameNode, source),
		Range:      symbolRange(node, source),
		Docstring:  docstringBefore(node, source),
		Visibility: extractVisibility(node, source),
	}
}

func extractFunction(node *sitter.Node, source []byte) *Symbol {
	nameNode := findChildByKind(node, "identifier")
	if nameNode == nil {
		return nil
	}

	sym := &Symbol{
		Kind:       KindFunction,
		Name:       nodeText(nameNode, source),
		Range:      symbolRange(node, source),
		Docstring:  docstringBefore(node, source),
		Visibility: extractVisibility(node, source),
	}

	for _, c := range children(node) {
		switch c.Kind() {
		case "async":
			sym.IsAsync = true
		case "unsafe":
			sym.IsUnsafe = true
		case "const":
			sym.IsConst = true
		}
	}
	return sym
}

func extractImpl(node *sitter.Node, source []byte) *Symbol {
	typeIdents := findChildrenByKind(node, "type_identifier")
	if len(typeIdents) == 0 {
		return nil
	}

	hasFor := false
	for _, c := range children(node) {
		if c.Kind() == "for" {
			hasFor = true
			break
		}
	}

	var traitName, typeName string
	if len(typeIdents) >= 2 || hasFor {
		traitName = nodeText(typeIdents[0], source)
		typeName = nodeText(typeIdents[len(typeIdents)-1], source)
	} else {
		typeName = nodeText(typeIdents[0], source)
	}

	name := typeName
	if traitName != "" {
		name = traitName + " for " + typeName
	}

	return &Symbol{
		Kind:       KindImpl,
		Name:       name,
		Range:      symbolRange(node, source),
		Docstring:  docstringBefore(node, source),
		Visibility: extractVisibility(node, source),
		TraitName:  traitName,
		TypeName:   typeName,
	}
}

// symbolRange extends node's own span backward to cover any contiguous
// leading attributes/doc comments, per the inclusive-range requirement.
func symbolRange(node *sitter.Node, source []byte) Range {
	start := node
	for {
		prev := start.PrevSibling()
		if prev == nil {
			break
		}
		if prev.Kind() == "attribute_item" {
			start = prev
			continue
		}
		if prev.Kind() == "line_comment" {
			text := nodeText(prev, source)
			if strings.HasPrefix(text, "///") || strings.HasPrefix(text, "//!") {
				start = prev
				continue
			}
		}
		break
	}
	return Range{
		StartLine: startLine(start),
		EndLine:   endLine(node),
		StartByte: int(start.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// docstringBefore collects contiguous `///`/`//!` line comments immediately
// preceding node, stopping at the first non-doc-comment, non-attribute
// sibling. Lines are returned oldest-first, prefix stripped.
func docstringBefore(node *sitter.Node, source []byte) string {
	var lines []string
	prev := node.PrevSibling()
	for prev != nil {
		if prev.Kind() == "line_comment" {
			text := nodeText(prev, source)
			var content string
			switch {
			case strings.HasPrefix(text, "///"):
				content = strings.TrimSpace(strings.TrimPrefix(text, "///"))
			case strings.HasPrefix(text, "//!"):
				content = strings.TrimSpace(strings.TrimPrefix(text, "//!"))
			default:
				// Non-doc comment: stop.
				return joinReversed(lines)
			}
			lines = append(lines, content)
			prev = prev.PrevSibling()
			continue
		}
		if prev.Kind() == "attribute_item" {
			prev = prev.PrevSibling()
			continue
		}
		break
	}
	return joinReversed(lines)
}

func joinReversed(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[len(lines)-1-i] = l
	}
	return strings.Join(out, "\n")
}

// extractVisibility reads a symbol's `pub` / `pub(crate)` / `pub(in ...)`
// modifier, defaulting to private.
func extractVisibility(node *sitter.Node, source []byte) Visibility {
	vis := findChildByKind(node, "visibility_modifier")
	if vis == nil {
		return VisPrivate
	}
	text := nodeText(vis, source)
	switch {
	case text == "pub":
		return VisPublic
	case strings.HasPrefix(text, "pub(crate)"):
		return VisCrateLocal
	case strings.HasPrefix(text, "pub("):
		return VisRestricted
	default:
		return VisPrivate
	}
}
