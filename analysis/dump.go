package analysis

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// DumpTree renders the parse tree as indented text, one named node per line
// with its kind and span, and the source snippet for leaf nodes. No analysis
// logic is involved; the output exists for inspection and debugging.
func DumpTree(tree *sitter.Tree, src []byte) string {
	var b strings.Builder
	dumpNode(tree.RootNode(), src, 0, &b)
	return b.String()
}

func dumpNode(node *sitter.Node, src []byte, depth int, b *strings.Builder) {
	if !node.IsNamed() {
		return
	}
	start := node.StartPoint()
	end := node.EndPoint()
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "%s [%d:%d - %d:%d]", node.Type(), start.Row, start.Column, end.Row, end.Column)
	if node.NamedChildCount() == 0 {
		snippet := text(src, node)
		if len(snippet) > 40 {
			snippet = snippet[:40] + "..."
		}
		fmt.Fprintf(b, " %q", snippet)
	}
	b.WriteString("\n")
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		dumpNode(child, src, depth+1, b)
	}
}
