package analysis

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// IsStructFieldDecl reports whether rng points at a struct field declaration:
// a field_identifier with a field_declaration ancestor, without crossing a
// function boundary.
func IsStructFieldDecl(tree *sitter.Tree, rng Range) bool {
	target := rangeStartPoint(rng)
	for node := FindNodeAt(tree.RootNode(), target); node != nil; node = node.Parent() {
		if node.Type() != "field_identifier" {
			continue
		}
		for parent := node.Parent(); parent != nil; parent = parent.Parent() {
			switch parent.Type() {
			case "field_declaration":
				return true
			case "function_declaration", "method_declaration":
				return false
			}
		}
	}
	return false
}

// FieldTypeKindAt reads the declared type of the field at rng.
func FieldTypeKindAt(tree *sitter.Tree, rng Range, src []byte) FieldTypeKind {
	target := rangeStartPoint(rng)
	for node := FindNodeAt(tree.RootNode(), target); node != nil; node = node.Parent() {
		if node.Type() != "field_declaration" {
			continue
		}
		typeNode := node.ChildByFieldName("type")
		if typeNode == nil {
			return FieldOther
		}
		switch typeNode.Type() {
		case "slice_type":
			return FieldSlice
		case "map_type":
			return FieldMap
		case "type_identifier":
			if text(src, typeNode) == "string" {
				return FieldString
			}
		}
		return FieldOther
	}
	return FieldOther
}

// heavyQualified and heavySimple list call targets considered expensive
// enough to flag when performed under a held lock.
var heavyQualified = map[string]bool{
	"fmt.Println": true, "fmt.Printf": true, "fmt.Sprintf": true,
	"sort.Slice": true, "sort.SliceStable": true,
}

var heavySimple = map[string]bool{"append": true, "copy": true}

// IsHeavyWorkCall reports whether the access at rng sits inside a call to a
// known heavy operation.
func IsHeavyWorkCall(tree *sitter.Tree, rng Range, src []byte) bool {
	target := rangeStartPoint(rng)
	for node := FindNodeAt(tree.RootNode(), target); node != nil; node = node.Parent() {
		if node.Type() != "call_expression" {
			continue
		}
		fn := node.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		name := strings.TrimSpace(text(src, fn))
		if heavyQualified[name] || heavySimple[name] {
			return true
		}
	}
	return false
}

// RetentionRisk flags assignments whose right-hand side keeps a larger
// backing allocation alive: sub-slice/sub-string expressions for slice and
// string fields, plain reference expressions for map fields. It returns the
// message to attach, or "" when the pattern does not apply.
func RetentionRisk(tree *sitter.Tree, rng Range, kind FieldTypeKind) string {
	if kind != FieldSlice && kind != FieldString && kind != FieldMap {
		return ""
	}
	target := FindNodeAt(tree.RootNode(), rangeStartPoint(rng))
	if target == nil {
		return ""
	}
	rhs := assignmentRHSFor(target)
	if rhs == nil {
		return ""
	}
	switch kind {
	case FieldSlice, FieldString:
		if rhs.Type() == "slice_expression" {
			return "Retention risk: sub-slice/sub-string may keep large backing memory"
		}
	case FieldMap:
		switch rhs.Type() {
		case "identifier", "selector_expression", "index_expression":
			return "Retention risk: map reference can keep large object graph alive"
		}
	}
	return ""
}

// assignmentRHSFor finds the right-hand-side expression paired with the
// assignment position of target, matching multi-assignment positions by
// index.
func assignmentRHSFor(target *sitter.Node) *sitter.Node {
	targetStart := target.StartByte()
	for node := target; node != nil; node = node.Parent() {
		switch node.Type() {
		case "assignment_statement", "short_var_declaration":
		default:
			continue
		}
		left := node.ChildByFieldName("left")
		if left == nil {
			return nil
		}
		if left.Type() != "expression_list" {
			continue
		}
		lhsIndex := -1
		for idx := 0; idx < int(left.NamedChildCount()); idx++ {
			lhs := left.NamedChild(idx)
			if lhs != nil && lhs.StartByte() <= targetStart && targetStart <= lhs.EndByte() {
				lhsIndex = idx
				break
			}
		}
		if lhsIndex < 0 {
			return nil
		}
		right := node.ChildByFieldName("right")
		if right == nil {
			return nil
		}
		if right.Type() != "expression_list" {
			return right
		}
		if rhs := right.NamedChild(lhsIndex); rhs != nil {
			return rhs
		}
		return right.NamedChild(0)
	}
	return nil
}

// IsValueCopyContext reports whether the access at rng appears as a bare
// argument, return value, or assignment source, where a non-pointer struct
// would be copied by value. Address-of contexts are excluded.
func IsValueCopyContext(tree *sitter.Tree, rng Range, src []byte) bool {
	target := FindNodeAt(tree.RootNode(), rangeStartPoint(rng))
	if target == nil {
		return false
	}
	if underAddressOf(target, src) {
		return false
	}
	for node := target; node != nil; node = node.Parent() {
		parent := node.Parent()
		if parent == nil {
			break
		}
		switch parent.Type() {
		case "argument_list", "expression_list":
			if grand := parent.Parent(); grand != nil {
				switch grand.Type() {
				case "call_expression", "assignment_statement", "short_var_declaration", "return_statement":
					return true
				}
			}
		}
	}
	return false
}

// underAddressOf reports whether node sits under an address-of operator
// within the same statement.
func underAddressOf(node *sitter.Node, src []byte) bool {
	for current := node; current != nil; current = current.Parent() {
		if current.Type() == "unary_expression" && strings.HasPrefix(strings.TrimLeft(text(src, current), " \t"), "&") {
			return true
		}
		switch current.Type() {
		case "assignment_statement", "short_var_declaration", "return_statement",
			"call_expression", "function_declaration", "method_declaration":
			return false
		}
	}
	return false
}

// ContextKey returns the byte-identified range of the execution context
// enclosing rng, used to group uses per function/method/closure. The second
// result is false when rng is outside any function.
func ContextKey(tree *sitter.Tree, rng Range) (Range, bool) {
	target := rangeStartPoint(rng)
	for node := FindNodeAt(tree.RootNode(), target); node != nil; node = node.Parent() {
		switch node.Type() {
		case "function_declaration", "method_declaration", "func_literal":
			return nodeRange(node), true
		}
	}
	return Range{}, false
}

// IsReassignment reports whether the use at useRange writes the variable:
// assignment left-hand sides and inc/dec statements count, a := of an
// already-scoped name conservatively does not. Selector and index chains are
// climbed first so s.field = v counts as a write of the field.
func IsReassignment(tree *sitter.Tree, name string, useRange Range, src []byte) bool {
	node := FindNodeAt(tree.RootNode(), rangeStartPoint(useRange))
	if node == nil {
		return false
	}
	for node.Parent() != nil {
		kind := node.Parent().Type()
		if kind != "selector_expression" && kind != "index_expression" && kind != "parenthesized_expression" {
			break
		}
		node = node.Parent()
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "assignment_statement":
		if left := parent.ChildByFieldName("left"); left != nil {
			return subtreeMentions(left, name, src)
		}
	case "expression_list":
		if grand := parent.Parent(); grand != nil && grand.Type() == "assignment_statement" {
			if left := grand.ChildByFieldName("left"); left != nil && sameNode(left, parent) {
				return subtreeMentions(left, name, src)
			}
		}
	case "inc_statement", "dec_statement":
		return true
	}
	return false
}

// subtreeMentions reports whether node's subtree contains an identifier or
// field identifier with the given name.
func subtreeMentions(node *sitter.Node, name string, src []byte) bool {
	switch node.Type() {
	case "identifier", "field_identifier":
		if text(src, node) == name {
			return true
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if subtreeMentions(child, name, src) {
			return true
		}
	}
	return false
}

// IsGlobalDecl reports whether the declaration at rng sits outside any
// function, method, or closure body.
func IsGlobalDecl(tree *sitter.Tree, rng Range) bool {
	target := rangeStartPoint(rng)
	node := FindNodeAt(tree.RootNode(), target)
	for ; node != nil; node = node.Parent() {
		switch node.Type() {
		case "function_declaration", "method_declaration", "func_literal":
			return false
		}
	}
	return true
}
