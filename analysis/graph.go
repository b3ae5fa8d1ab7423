package analysis

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// EntityKind tags graph nodes by the kind of entity they represent.
type EntityKind string

const (
	EntityVariable  EntityKind = "variable"
	EntityFunction  EntityKind = "function"
	EntityChannel   EntityKind = "channel"
	EntityGoroutine EntityKind = "goroutine"
	EntitySyncBlock EntityKind = "sync"
)

// EdgeKind tags graph edges by relation.
type EdgeKind string

const (
	EdgeUse     EdgeKind = "use"
	EdgeCall    EdgeKind = "call"
	EdgeSend    EdgeKind = "send"
	EdgeReceive EdgeKind = "receive"
	EdgeSpawn   EdgeKind = "spawn"
	EdgeSync    EdgeKind = "sync"
)

// GraphNode is one entity in the relationship graph.
type GraphNode struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Entity EntityKind `json:"entity"`
	Range  Range      `json:"range"`
	IsUse  bool       `json:"isUse,omitempty"`
}

// GraphEdge is one relation between two graph node ids.
type GraphEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// GraphData is the full relationship graph for one file. It is rebuilt from
// scratch on every request.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func graphID(kind, name string, rng Range) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", kind, name, rng.Start.Line, rng.Start.Column, rng.End.Column)
}

// BuildGraph produces the node/edge graph for visualization in a single
// pre-order pass. Identifier uses link through a flat name-to-declaration
// map, not full scope resolution, so shadowed names may over-link; the graph
// is a visualization aid, not a resolver.
func BuildGraph(tree *sitter.Tree, src []byte) *GraphData {
	data := &GraphData{}
	declIDs := make(map[string]string)
	buildGraphNode(tree.RootNode(), src, data, declIDs)
	return data
}

func buildGraphNode(node *sitter.Node, src []byte, data *GraphData, declIDs map[string]string) {
	switch node.Type() {
	case "var_spec", "short_var_declaration":
		for _, ident := range declaredIdentifiers(node) {
			name := text(src, ident)
			rng := nodeRange(ident)
			id := graphID("var", name, rng)
			declIDs[name] = id
			data.Nodes = append(data.Nodes, GraphNode{ID: id, Label: name, Entity: EntityVariable, Range: rng})
		}
	case "function_declaration":
		if ident := node.ChildByFieldName("name"); ident != nil {
			name := text(src, ident)
			rng := nodeRange(ident)
			data.Nodes = append(data.Nodes, GraphNode{
				ID: graphID("fn", name, rng), Label: name, Entity: EntityFunction, Range: rng,
			})
		}
	case "go_statement":
		rng := nodeRange(node)
		id := graphID("go", "goroutine", rng)
		data.Nodes = append(data.Nodes, GraphNode{ID: id, Label: "goroutine", Entity: EntityGoroutine, Range: rng})
		data.Edges = append(data.Edges, GraphEdge{From: graphID("spawnsite", "go", rng), To: id, Kind: EdgeSpawn})
	case "channel_type":
		rng := nodeRange(node)
		data.Nodes = append(data.Nodes, GraphNode{
			ID: graphID("chan", "channel", rng), Label: "channel", Entity: EntityChannel, Range: rng,
		})
	case "identifier":
		name := text(src, node)
		if !isBindingOccurrence(node) {
			if declID, ok := declIDs[name]; ok {
				rng := nodeRange(node)
				useID := graphID("use", name, rng)
				data.Nodes = append(data.Nodes, GraphNode{
					ID: useID, Label: name, Entity: EntityVariable, Range: rng, IsUse: true,
				})
				data.Edges = append(data.Edges, GraphEdge{From: declID, To: useID, Kind: EdgeUse})
			}
		}
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			name := text(src, fn)
			data.Edges = append(data.Edges, GraphEdge{
				From: graphID("callsite", name, nodeRange(node)),
				To:   graphID("fn", name, nodeRange(fn)),
				Kind: EdgeCall,
			})
		}
		if isMutexCall(node, src) || isAtomicCall(node, src) {
			rng := nodeRange(node)
			data.Edges = append(data.Edges, GraphEdge{
				From: graphID("callsite", "sync", rng),
				To:   graphID("sync", "sync", rng),
				Kind: EdgeSync,
			})
		}
	case "send_statement":
		if ch := node.ChildByFieldName("channel"); ch != nil {
			data.Edges = append(data.Edges, GraphEdge{
				From: graphID("send", text(src, ch), nodeRange(node)),
				To:   graphID("chan", text(src, ch), nodeRange(ch)),
				Kind: EdgeSend,
			})
		}
	case "unary_expression":
		if strings.HasPrefix(text(src, node), "<-") {
			if ch := node.ChildByFieldName("operand"); ch != nil {
				data.Edges = append(data.Edges, GraphEdge{
					From: graphID("recv", text(src, ch), nodeRange(node)),
					To:   graphID("chan", text(src, ch), nodeRange(ch)),
					Kind: EdgeReceive,
				})
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		buildGraphNode(child, src, data, declIDs)
	}
}

// isBindingOccurrence reports whether an identifier is a binding occurrence
// (a declared name) rather than a use: a direct child of a var_spec, or part
// of the left list of a short declaration.
func isBindingOccurrence(node *sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "var_spec", "short_var_declaration":
		return true
	case "expression_list":
		grand := parent.Parent()
		if grand == nil || grand.Type() != "short_var_declaration" {
			return false
		}
		left := grand.ChildByFieldName("left")
		return left != nil && sameNode(left, parent)
	}
	return false
}

// declaredIdentifiers collects the binding identifiers of a var_spec or
// short_var_declaration: direct identifier children plus, for short
// declarations, identifiers inside the left expression_list.
func declaredIdentifiers(node *sitter.Node) []*sitter.Node {
	var idents []*sitter.Node
	appendFrom := func(parent *sitter.Node) {
		for i := 0; i < int(parent.ChildCount()); i++ {
			child := parent.Child(i)
			if child == nil {
				continue
			}
			if child.Type() == "identifier" {
				idents = append(idents, child)
			}
		}
	}
	appendFrom(node)
	if node.Type() == "short_var_declaration" {
		if left := node.ChildByFieldName("left"); left != nil {
			appendFrom(left)
		}
	}
	return idents
}

// CountEntities tallies declaration-form entities in the file: variables
// (binding identifiers), named function declarations, channel type
// occurrences, and goroutine spawns. Anonymous spawn bodies do not count as
// functions.
func CountEntities(tree *sitter.Tree, src []byte) EntityCount {
	var counts EntityCount
	var traverse func(node *sitter.Node)
	traverse = func(node *sitter.Node) {
		switch node.Type() {
		case "var_spec", "short_var_declaration":
			counts.Variables += len(declaredIdentifiers(node))
		case "function_declaration":
			counts.Functions++
		case "go_statement":
			counts.Goroutines++
		case "channel_type":
			counts.Channels++
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
	return counts
}
