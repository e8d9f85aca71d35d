package parser

import sitter "github.com/tree-sitter/go-tree-sitter"

// extractTypeReferences walks node recording a TypeReference for every
// function parameter/return type, struct field, impl block, let-binding
// annotation, and generic argument it finds.
func extractTypeReferences(node *sitter.Node, source []byte, result *ParseResult, currentFunction, currentStruct string) {
	switch node.Kind() {
	case "function_item":
		name := functionName(node, source)
		if params := findChildByKind(node, "parameters"); params != nil {
			extractFromParameters(params, source, name, result)
		}
		if ret := findChildByKind(node, "type_identifier"); ret != nil && name != "" {
			result.TypeReferences = append(result.TypeReferences, TypeReference{
				TypeName:     nodeText(ret, source),
				Context:      CtxFunctionReturn,
				FunctionName: name,
				Line:         startLine(ret),
			})
		}
		for _, c := range children(node) {
			extractTypeReferences(c, source, result, name, currentStruct)
		}
		return

	case "struct_item":
		name := ""
		if n := findChildByKind(node, "type_identifier"); n != nil {
			name = nodeText(n, source)
		}
		if fields := findChildByKind(node, "field_declaration_list"); fields != nil {
			extractFromStructFields(fields, source, name, result)
		}
		for _, c := range children(node) {
			extractTypeReferences(c, source, result, currentFunction, name)
		}
		return

	case "impl_item":
		traitName, typeName := implInfo(node, source)
		if typeName != "" {
			result.TypeReferences = append(result.TypeReferences, TypeReference{
				TypeName:  typeName,
				Context:   CtxImplBlock,
				TraitName: traitName,
				Line:      startLine(node),
			})
		}
		for _, c := range children(node) {
			extractTypeReferences(c, source, result, currentFunction, currentStruct)
		}
		return

	case "let_declaration":
		if typeID := findDescendantByKind(node, "type_identifier"); typeID != nil {
			result.TypeReferences = append(result.TypeReferences, TypeReference{
				TypeName: nodeText(typeID, source),
				Context:  CtxLetBinding,
				Line:     startLine(typeID),
			})
		}
		for _, c := range children(node) {
			extractTypeReferences(c, source, result, currentFunction, currentStruct)
		}
		return

	case "type_arguments":
		for _, c := range children(node) {
			if c.Kind() == "type_identifier" {
				result.TypeReferences = append(result.TypeReferences, TypeReference{
					TypeName: nodeText(c, source),
					Context:  CtxGenericArgument,
					Line:     startLine(c),
				})
			} else {
				extractTypeReferences(c, source, result, currentFunction, currentStruct)
			}
		}
		return
	}

	for _, c := range children(node) {
		extractTypeReferences(c, source, result, currentFunction, currentStruct)
	}
}

func extractFromParameters(params *sitter.Node, source []byte, functionName string, result *ParseResult) {
	for _, param := range findChildrenByKind(params, "parameter") {
		if typeID := findDescendantByKind(param, "type_identifier"); typeID != nil && functionName != "" {
			result.TypeReferences = append(result.TypeReferences, TypeReference{
				TypeName:     nodeText(typeID, source),
				Context:      CtxFunctionParameter,
				FunctionName: functionName,
				Line:         startLine(typeID),
			})
		}
		if typeArgs := findDescendantByKind(param, "type_arguments"); typeArgs != nil {
			for _, c := range children(typeArgs) {
				if c.Kind() == "type_identifier" {
					result.TypeReferences = append(result.TypeReferences, TypeReference{
						TypeName: nodeText(c, source),
						Context:  CtxGenericArgument,
						Line:     startLine(c),
					})
				}
			}
		}
	}
}

func extractFromStructFields(fieldList *sitter.Node, source []byte, structName string, result *ParseResult) {
	for _, field := range findChildrenByKind(fieldList, "field_declaration") {
		fieldName := ""
		if id := findChildByKind(field, "field_identifier"); id != nil {
			fieldName = nodeText(id, source)
		}
		if typeID := findDescendantByKind(field, "type_identifier"); typeID != nil && structName != "" {
			result.TypeReferences = append(result.TypeReferences, TypeReference{
				TypeName:   nodeText(typeID, source),
				Context:    CtxStructField,
				StructName: structName,
				FieldName:  fieldName,
				Line:       startLine(typeID),
			})
		}
		if typeArgs := findDescendantByKind(field, "type_arguments"); typeArgs != nil {
			for _, c := range children(typeArgs) {
				if c.Kind() == "type_identifier" {
					result.TypeReferences = append(result.TypeReferences, TypeReference{
						TypeName: nodeText(c, source),
						Context:  CtxGenericArgument,
						Line:     startLine(c),
					})
				}
			}
		}
	}
}

// implInfo returns (traitName, typeName) for an impl_item: two
// type_identifiers or a `for` keyword means a trait impl (first is the
// trait, last is the implementing type); otherwise it's an inherent impl.
func implInfo(node *sitter.Node, source []byte) (string, string) {
	typeIdents := findChildrenByKind(node, "type_identifier")
	if len(typeIdents) == 0 {
		return "", ""
	}
	hasFor := false
	for _, c := range children(node) {
		if c.Kind() == "for" {
			hasFor = true
			break
		}
	}
	if len(typeIdents) >= 2 || hasFor {
		return nodeText(typeIdents[0], source), nodeText(typeIdents[len(typeIdents)-1], source)
	}
	return "", nodeText(typeIdents[0], source)
}
