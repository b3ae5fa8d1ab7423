package analysis

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ContextKind classifies what sits under the cursor, independent of variable
// resolution.
type ContextKind string

const (
	ContextVariableDeclaration  ContextKind = "variable-declaration"
	ContextParameterDeclaration ContextKind = "parameter-declaration"
	ContextVariableUse          ContextKind = "variable-use"
	ContextStructField          ContextKind = "struct-field"
	ContextFieldAccess          ContextKind = "field-access"
	ContextObjectAccess         ContextKind = "object-access"
	ContextFunctionName         ContextKind = "function-name"
	ContextFunctionCall         ContextKind = "function-call"
	ContextFunctionDeclaration  ContextKind = "function-declaration"
	ContextGoroutine            ContextKind = "goroutine"
	ContextAssignment           ContextKind = "assignment"
	ContextTypeReference        ContextKind = "type-reference"
	ContextPackageReference     ContextKind = "package-reference"
	ContextChannelType          ContextKind = "channel-type"
	ContextInterfaceType        ContextKind = "interface-type"
	ContextStructType           ContextKind = "struct-type"
	ContextUnknown              ContextKind = "unknown"
)

// CursorContext is a single-shot description of the node under a cursor.
type CursorContext struct {
	NodeKind      string       `json:"nodeKind"`
	Position      Range        `json:"position"`
	Context       ContextKind  `json:"context"`
	ParentContext *ContextKind `json:"parentContext,omitempty"`
	Details       string       `json:"details,omitempty"`
}

// CursorContextAt describes the most specific meaningful node at pos, or nil
// when pos is outside the tree.
func CursorContextAt(tree *sitter.Tree, pos Position) *CursorContext {
	target := sitter.Point{Row: pos.Line, Column: pos.Column}
	node := FindNodeAt(tree.RootNode(), target)
	if node == nil {
		return nil
	}
	ctx := &CursorContext{
		NodeKind: node.Type(),
		Position: nodeRange(node),
		Context:  classifyContext(node),
		Details:  fmt.Sprintf("Node: %s at %d:%d", node.Type(), pos.Line, pos.Column),
	}
	if parent := node.Parent(); parent != nil {
		parentCtx := classifyContext(parent)
		ctx.ParentContext = &parentCtx
	}
	return ctx
}

func classifyContext(node *sitter.Node) ContextKind {
	switch node.Type() {
	case "identifier":
		parent := node.Parent()
		if parent == nil {
			return ContextUnknown
		}
		switch parent.Type() {
		case "var_spec", "short_var_declaration":
			return ContextVariableDeclaration
		case "parameter_declaration":
			return ContextParameterDeclaration
		case "function_declaration":
			return ContextFunctionName
		case "call_expression":
			return ContextFunctionCall
		case "selector_expression":
			if field := parent.ChildByFieldName("field"); field != nil && sameNode(field, node) {
				return ContextFieldAccess
			}
			return ContextObjectAccess
		case "go_statement":
			return ContextGoroutine
		case "assignment_statement", "expression_list":
			if grand := parent.Parent(); grand != nil && grand.Type() == "assignment_statement" {
				return ContextAssignment
			}
			if parent.Type() == "assignment_statement" {
				return ContextAssignment
			}
			return ContextVariableUse
		default:
			return ContextVariableUse
		}
	case "field_identifier":
		return ContextFieldAccess
	case "type_identifier":
		return ContextTypeReference
	case "package_identifier":
		return ContextPackageReference
	case "function_declaration":
		return ContextFunctionDeclaration
	case "go_statement":
		return ContextGoroutine
	case "channel_type":
		return ContextChannelType
	case "interface_type":
		return ContextInterfaceType
	case "struct_type":
		return ContextStructType
	default:
		return ContextUnknown
	}
}
