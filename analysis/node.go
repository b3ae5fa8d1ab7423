package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// pointLEQ reports whether a <= b in (row, column) order.
func pointLEQ(a, b sitter.Point) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Column <= b.Column
}

// nodeContainsPoint reports whether target falls within node's span,
// inclusive on both ends.
func nodeContainsPoint(node *sitter.Node, target sitter.Point) bool {
	return pointLEQ(node.StartPoint(), target) && pointLEQ(target, node.EndPoint())
}

// rangeContainsPoint reports whether target falls within rng, inclusive.
func rangeContainsPoint(rng Range, target sitter.Point) bool {
	start := sitter.Point{Row: rng.Start.Line, Column: rng.Start.Column}
	end := sitter.Point{Row: rng.End.Line, Column: rng.End.Column}
	return pointLEQ(start, target) && pointLEQ(target, end)
}

// rangeStartPoint converts the start of rng into a tree-sitter point.
func rangeStartPoint(rng Range) sitter.Point {
	return sitter.Point{Row: rng.Start.Line, Column: rng.Start.Column}
}

// positionInNode implements the containment rule for cursor lookup:
// single-line nodes require column containment, multi-line nodes require the
// row to fall between start/end rows with the correct column on boundary rows.
func positionInNode(node *sitter.Node, position sitter.Point) bool {
	start := node.StartPoint()
	end := node.EndPoint()
	if start.Row == end.Row {
		return start.Row == position.Row &&
			start.Column <= position.Column && position.Column <= end.Column
	}
	if position.Row < start.Row || position.Row > end.Row {
		return false
	}
	if position.Row == start.Row {
		return position.Column >= start.Column
	}
	if position.Row == end.Row {
		return position.Column <= end.Column
	}
	return true
}

// nodeSize is the comparison measure used to prefer the most specific node:
// width in columns for single-line nodes, a row-weighted measure otherwise.
func nodeSize(node *sitter.Node) int {
	start := node.StartPoint()
	end := node.EndPoint()
	if start.Row == end.Row {
		return int(end.Column - start.Column)
	}
	return int(end.Row-start.Row)*1000 + int(end.Column+start.Column)
}

// punctuationKinds are node kinds that never carry cursor meaning.
var punctuationKinds = map[string]bool{
	"{": true, "}": true, "(": true, ")": true, "[": true, "]": true,
	",": true, ";": true, ":": true, ".": true, "=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"<": true, ">": true, "!": true, "&": true, "|": true, "^": true, "~": true, "?": true,
	"comment": true, "\n": true, " ": true,
}

// meaningfulNode reports whether node is an acceptable cursor target.
func meaningfulNode(node *sitter.Node) bool {
	return !punctuationKinds[node.Type()]
}

// FindNodeAt locates the smallest meaningful node containing target, starting
// from node. It returns nil when target lies outside node's span.
func FindNodeAt(node *sitter.Node, target sitter.Point) *sitter.Node {
	if node == nil || !positionInNode(node, target) {
		return nil
	}
	best := node
	bestSize := nodeSize(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		match := FindNodeAt(child, target)
		if match == nil {
			continue
		}
		// <= so a leaf sharing its ancestor's span (single-expression lists)
		// wins the tie.
		if size := nodeSize(match); size <= bestSize && meaningfulNode(match) {
			best = match
			bestSize = size
		}
	}
	return best
}

// sameNode compares two nodes structurally by kind and byte span. This is the
// canonical node identity used across capture and lock-context checks.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type() == b.Type() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}
