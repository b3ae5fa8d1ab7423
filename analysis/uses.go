package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// VariableAt resolves the variable reference under pos and collects its
// declaration and every use bound to the same declaration. It returns nil
// when pos does not sit on a variable reference: that is the expected outcome
// for cursor positions on keywords, literals, or called selectors.
func VariableAt(tree *sitter.Tree, src []byte, pos Position) *VariableInfo {
	target := sitter.Point{Row: pos.Line, Column: pos.Column}
	node := FindNodeAt(tree.RootNode(), target)
	if node == nil {
		return nil
	}
	if isSelectorCallSymbol(node) {
		return nil
	}
	name := extractVariableName(node, src)
	if name == "" {
		return nil
	}
	if isFieldIdentifierContext(node, target) {
		return collectFieldInfo(tree, src, name, target)
	}
	scope := findFunctionScope(tree.RootNode(), target)
	searchRoot := tree.RootNode()
	if scope != nil {
		searchRoot = scope
	}
	decl := resolveDeclForTarget(searchRoot, src, name, target)
	if decl == nil && scope != nil {
		// Not declared in the enclosing function: retry against the whole
		// file so package-level variables resolve, with uses collected
		// across every function.
		searchRoot = tree.RootNode()
		decl = resolveDeclForTarget(searchRoot, src, name, target)
	}
	if decl == nil {
		return nil
	}
	info := &VariableInfo{
		Name:         name,
		Declaration:  decl.rng,
		IsPointer:    decl.isPointer,
		RaceSeverity: SeverityMedium,
		VarID:        decl.varID,
	}
	collectUsesForDecl(searchRoot, src, name, decl, info)
	return info
}

// collectUsesForDecl re-traverses with the same scope-stack mechanism as
// declaration resolution, recording every identifier whose active declaration
// matches the target's VarID. Pre-order traversal over offset-ordered
// children keeps Uses in ascending source order.
func collectUsesForDecl(root *sitter.Node, src []byte, name string, target *declInfo, info *VariableInfo) {
	stack := []scopeEntry{{}}
	collectUsesTraverse(root, src, name, target, &stack, info)
}

func collectUsesTraverse(node *sitter.Node, src []byte, name string, target *declInfo, stack *[]scopeEntry, info *VariableInfo) {
	isScope := isScopeNode(node.Type())
	if isScope {
		*stack = append(*stack, scopeEntry{})
	}
	if decl := findDeclInNode(node, src, name, currentScopeHasDecl(*stack)); decl != nil {
		(*stack)[len(*stack)-1].decl = decl
	}
	if node.Type() == "identifier" && text(src, node) == name {
		if current := resolveCurrentDecl(*stack); current != nil && current.varID == target.varID {
			useRange := nodeRange(node)
			if useRange != info.Declaration && !containsRange(info.Uses, useRange) {
				if parent := node.Parent(); parent != nil {
					checkPointerContext(parent, src, info)
				}
				info.Uses = append(info.Uses, useRange)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		collectUsesTraverse(child, src, name, target, stack, info)
	}
	if isScope {
		*stack = (*stack)[:len(*stack)-1]
	}
}

func containsRange(ranges []Range, rng Range) bool {
	for _, r := range ranges {
		if r == rng {
			return true
		}
	}
	return false
}

// checkPointerContext upgrades IsPointer when a use sits under an address-of
// or dereference operator, or in a reference-kind type context. The upgrade
// is monotonic: once pointer-like, always pointer-like for this result.
func checkPointerContext(node *sitter.Node, src []byte, info *VariableInfo) {
	switch {
	case node.Type() == "unary_expression":
		if op := node.ChildByFieldName("operator"); op != nil {
			if t := text(src, op); t == "&" || t == "*" {
				info.IsPointer = true
			}
		}
	case node.Type() == "pointer_type" || isReferenceTypeKind(node.Type()):
		info.IsPointer = true
	default:
		if parent := node.Parent(); parent != nil {
			checkPointerContext(parent, src, info)
		}
	}
}

// extractVariableName pulls the identifier text out of node, descending when
// the cursor landed on a composite node.
func extractVariableName(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "identifier", "field_identifier":
		return text(src, node)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if name := extractVariableName(child, src); name != "" {
			return name
		}
	}
	return ""
}

// isFieldIdentifierContext reports whether the cursor target is a struct
// field reference rather than a plain variable.
func isFieldIdentifierContext(node *sitter.Node, target sitter.Point) bool {
	if node.Type() == "field_identifier" {
		return true
	}
	if node.Type() == "selector_expression" {
		if field := node.ChildByFieldName("field"); field != nil && nodeContainsPoint(field, target) {
			return true
		}
	}
	return false
}

// isSelectorCallSymbol reports whether node is the function part of a method
// call (mu.Lock, fmt.Println). Those are call symbols, not variable uses.
func isSelectorCallSymbol(node *sitter.Node) bool {
	var selector *sitter.Node
	switch node.Type() {
	case "selector_expression":
		selector = node
	case "field_identifier", "identifier":
		if parent := node.Parent(); parent != nil && parent.Type() == "selector_expression" {
			selector = parent
		}
	}
	if selector == nil {
		return false
	}
	parent := selector.Parent()
	if parent == nil || parent.Type() != "call_expression" {
		return false
	}
	fn := parent.ChildByFieldName("function")
	return fn != nil && sameNode(fn, selector)
}

// findFunctionScope locates the function or method declaration containing
// target, restricting use collection to one function body.
func findFunctionScope(node *sitter.Node, target sitter.Point) *sitter.Node {
	kind := node.Type()
	if (kind == "function_declaration" || kind == "method_declaration") && nodeContainsPoint(node, target) {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if scope := findFunctionScope(child, target); scope != nil {
			return scope
		}
	}
	return nil
}

// collectFieldInfo resolves a struct field symbol: the declaration is the
// matching field_identifier inside a field_declaration (preferring the one
// under the cursor), uses are selector_expression field accesses with the
// same name anywhere in the file.
func collectFieldInfo(tree *sitter.Tree, src []byte, name string, target sitter.Point) *VariableInfo {
	info := &VariableInfo{Name: name, RaceSeverity: SeverityMedium}
	found := false
	var traverse func(node *sitter.Node)
	traverse = func(node *sitter.Node) {
		if node.Type() == "field_declaration" {
			for i := 0; i < int(node.ChildCount()); i++ {
				child := node.Child(i)
				if child == nil || child.Type() != "field_identifier" || text(src, child) != name {
					continue
				}
				if !found || nodeContainsPoint(child, target) {
					info.Declaration = nodeRange(child)
					info.VarID = nodeVarID(child)
					found = true
					if typeNode := node.ChildByFieldName("type"); typeNode != nil && typeNode.Type() == "pointer_type" {
						info.IsPointer = true
					}
				}
			}
		}
		if node.Type() == "selector_expression" {
			if field := node.ChildByFieldName("field"); field != nil &&
				field.Type() == "field_identifier" && text(src, field) == name {
				useRange := nodeRange(field)
				if useRange != info.Declaration && !containsRange(info.Uses, useRange) {
					info.Uses = append(info.Uses, useRange)
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			traverse(child)
		}
	}
	traverse(tree.RootNode())
	if !found {
		return nil
	}
	// The declaration may have been located after some uses were recorded.
	filtered := info.Uses[:0]
	for _, use := range info.Uses {
		if use != info.Declaration {
			filtered = append(filtered, use)
		}
	}
	info.Uses = filtered
	return info
}
