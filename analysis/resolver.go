package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// scopeKinds are the node kinds that introduce a new lexical scope frame.
var scopeKinds = map[string]bool{
	"function_declaration":        true,
	"method_declaration":          true,
	"func_literal":                true,
	"block":                       true,
	"if_statement":                true,
	"for_statement":               true,
	"expression_switch_statement": true,
	"type_switch_statement":       true,
	"select_statement":            true,
	"expression_case":             true,
	"type_case":                   true,
	"default_case":                true,
	"communication_case":          true,
}

func isScopeNode(kind string) bool {
	return scopeKinds[kind]
}

// resolveCurrentDecl scans the scope stack innermost-first for the nearest
// visible declaration.
func resolveCurrentDecl(stack []scopeEntry) *declInfo {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].decl != nil {
			return stack[i].decl
		}
	}
	return nil
}

func currentScopeHasDecl(stack []scopeEntry) bool {
	return len(stack) > 0 && stack[len(stack)-1].decl != nil
}

// resolveDeclForTarget walks root depth-first maintaining a scope stack and
// returns the declaration of name visible at target, or nil when the name
// does not resolve to any scoped declaration (e.g. a package-level symbol).
func resolveDeclForTarget(root *sitter.Node, src []byte, name string, target sitter.Point) *declInfo {
	stack := []scopeEntry{{}}
	return resolveDeclTraverse(root, src, name, target, &stack)
}

func resolveDeclTraverse(node *sitter.Node, src []byte, name string, target sitter.Point, stack *[]scopeEntry) *declInfo {
	isScope := isScopeNode(node.Type())
	if isScope {
		*stack = append(*stack, scopeEntry{})
	}
	pop := func() {
		if isScope {
			*stack = (*stack)[:len(*stack)-1]
		}
	}
	if decl := findDeclInNode(node, src, name, currentScopeHasDecl(*stack)); decl != nil {
		(*stack)[len(*stack)-1].decl = decl
		if rangeContainsPoint(decl.rng, target) {
			pop()
			return decl
		}
	}
	if node.Type() == "identifier" && text(src, node) == name && nodeContainsPoint(node, target) {
		found := resolveCurrentDecl(*stack)
		pop()
		return found
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := resolveDeclTraverse(child, src, name, target, stack); found != nil {
			pop()
			return found
		}
	}
	pop()
	return nil
}

// findDeclInNode interprets node as a declaration form binding name. For
// short declarations an already-populated scope frame suppresses the match:
// within one syntactic scope a name binds once, so a later := of the same
// name is treated as the existing binding rather than a fresh one.
func findDeclInNode(node *sitter.Node, src []byte, name string, scopeHasDecl bool) *declInfo {
	switch node.Type() {
	case "short_var_declaration":
		if scopeHasDecl {
			return nil
		}
		left := node.ChildByFieldName("left")
		if left == nil {
			return nil
		}
		ident := findIdentifierIn(left, src, name)
		if ident == nil {
			return nil
		}
		isPointer := false
		if right := node.ChildByFieldName("right"); right != nil {
			isPointer = containsAddressOf(right, src) || containsReferenceType(right)
		}
		return &declInfo{rng: nodeRange(ident), varID: nodeVarID(ident), isPointer: isPointer}
	case "var_spec":
		ident := findIdentifierInNamed(node, src, name)
		if ident == nil {
			return nil
		}
		isPointer := false
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			if typeNode.Type() == "pointer_type" || isReferenceTypeKind(typeNode.Type()) {
				isPointer = true
			}
		}
		if value := node.ChildByFieldName("value"); value != nil {
			if containsAddressOf(value, src) || containsReferenceType(value) {
				isPointer = true
			}
		}
		return &declInfo{rng: nodeRange(ident), varID: nodeVarID(ident), isPointer: isPointer}
	case "parameter_declaration", "variadic_parameter_declaration":
		ident := findIdentifierInNamed(node, src, name)
		if ident == nil {
			return nil
		}
		isPointer := false
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			if typeNode.Type() == "pointer_type" || isReferenceTypeKind(typeNode.Type()) {
				isPointer = true
			}
		}
		return &declInfo{rng: nodeRange(ident), varID: nodeVarID(ident), isPointer: isPointer}
	case "range_clause":
		if !rangeClauseDeclares(node) {
			return nil
		}
		left := node.ChildByFieldName("left")
		if left == nil {
			return nil
		}
		ident := findIdentifierIn(left, src, name)
		if ident == nil {
			return nil
		}
		return &declInfo{rng: nodeRange(ident), varID: nodeVarID(ident)}
	}
	return nil
}

// findIdentifierInNamed looks for the binding identifier under the "name"
// field children of a var_spec or parameter declaration.
func findIdentifierInNamed(node *sitter.Node, src []byte, name string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "identifier" && text(src, child) == name {
			return child
		}
		// Grouped names (a, b int) appear as direct identifier children;
		// anything deeper belongs to the type or value expression.
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		if found := findIdentifierIn(nameNode, src, name); found != nil {
			return found
		}
	}
	return nil
}

// findIdentifierIn searches node's subtree for an identifier with the given
// text.
func findIdentifierIn(node *sitter.Node, src []byte, name string) *sitter.Node {
	if node.Type() == "identifier" && text(src, node) == name {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := findIdentifierIn(child, src, name); found != nil {
			return found
		}
	}
	return nil
}

// rangeClauseDeclares reports whether a range clause introduces new bindings
// (for k, v := range ...) as opposed to assigning existing ones.
func rangeClauseDeclares(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case ":=":
			return true
		case "=":
			return false
		}
	}
	return false
}

// referenceTypeKinds are type node kinds with reference semantics.
var referenceTypeKinds = map[string]bool{
	"slice_type":     true,
	"map_type":       true,
	"channel_type":   true,
	"function_type":  true,
	"interface_type": true,
}

func isReferenceTypeKind(kind string) bool {
	return referenceTypeKinds[kind]
}

// containsAddressOf reports whether node's subtree contains an address-of
// operation.
func containsAddressOf(node *sitter.Node, src []byte) bool {
	if node.Type() == "unary_expression" {
		if op := node.ChildByFieldName("operator"); op != nil && text(src, op) == "&" {
			return true
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if containsAddressOf(child, src) {
			return true
		}
	}
	return false
}

// containsReferenceType reports whether node's subtree mentions a
// reference-kind type.
func containsReferenceType(node *sitter.Node) bool {
	if isReferenceTypeKind(node.Type()) {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if containsReferenceType(child) {
			return true
		}
	}
	return false
}
