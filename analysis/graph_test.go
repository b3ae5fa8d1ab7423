package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphFixture = `package main

var total int

func main() {
	go worker(total)
}

func worker(n int) {
	ch := make(chan int)
	ch <- n
	recv := <-ch
	_ = recv
}
`

func TestCountEntities(t *testing.T) {
	tree, content := parseSource(t, graphFixture)

	counts := CountEntities(tree, content)
	assert.Equal(t, EntityCount{
		Variables:  3, // total, ch, recv
		Functions:  2,
		Channels:   1,
		Goroutines: 1,
	}, counts)
}

func TestCountEntitiesEmptyFile(t *testing.T) {
	tree, content := parseSource(t, "package main\n")

	assert.Equal(t, EntityCount{}, CountEntities(tree, content))
}

func findGraphNode(data *GraphData, label string, entity EntityKind, isUse bool) *GraphNode {
	for i := range data.Nodes {
		n := &data.Nodes[i]
		if n.Label == label && n.Entity == entity && n.IsUse == isUse {
			return n
		}
	}
	return nil
}

func edgesOfKind(data *GraphData, kind EdgeKind) []GraphEdge {
	var out []GraphEdge
	for _, e := range data.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildGraphNodes(t *testing.T) {
	tree, content := parseSource(t, graphFixture)

	data := BuildGraph(tree, content)
	require.NotNil(t, data)

	assert.NotNil(t, findGraphNode(data, "total", EntityVariable, false))
	assert.NotNil(t, findGraphNode(data, "ch", EntityVariable, false))
	assert.NotNil(t, findGraphNode(data, "main", EntityFunction, false))
	assert.NotNil(t, findGraphNode(data, "worker", EntityFunction, false))
	assert.NotNil(t, findGraphNode(data, "goroutine", EntityGoroutine, false))
	assert.NotNil(t, findGraphNode(data, "channel", EntityChannel, false))
}

func TestBuildGraphEdges(t *testing.T) {
	tree, content := parseSource(t, graphFixture)

	data := BuildGraph(tree, content)

	decl := findGraphNode(data, "total", EntityVariable, false)
	use := findGraphNode(data, "total", EntityVariable, true)
	require.NotNil(t, decl)
	require.NotNil(t, use)

	uses := edgesOfKind(data, EdgeUse)
	foundLink := false
	for _, e := range uses {
		if e.From == decl.ID && e.To == use.ID {
			foundLink = true
		}
	}
	assert.True(t, foundLink, "use edge links declaration to its reference")

	assert.NotEmpty(t, edgesOfKind(data, EdgeSpawn))
	assert.NotEmpty(t, edgesOfKind(data, EdgeCall))
	assert.NotEmpty(t, edgesOfKind(data, EdgeSend))
	assert.NotEmpty(t, edgesOfKind(data, EdgeReceive))
}

func TestBuildGraphBindingNotAUse(t *testing.T) {
	src := `package main

func fresh() {
	value := 1
	_ = value
}
`
	tree, content := parseSource(t, src)
	data := BuildGraph(tree, content)

	var uses int
	for _, n := range data.Nodes {
		if n.Label == "value" && n.IsUse {
			uses++
		}
	}
	assert.Equal(t, 1, uses, "the := binding occurrence is not a use node")
}

func TestBuildGraphSyncEdge(t *testing.T) {
	src := `package main

import "sync"

var mu sync.Mutex

func hold() {
	mu.Lock()
	mu.Unlock()
}
`
	tree, content := parseSource(t, src)
	data := BuildGraph(tree, content)

	assert.Len(t, edgesOfKind(data, EdgeSync), 2)
}
