package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceview/raceview/analysis"
	"github.com/raceview/raceview/document"
	"github.com/raceview/raceview/report"
	"github.com/raceview/raceview/semantic"
)

const fixture = `package main

var counter int

func main() {
	go func() {
		counter = 1
	}()
	counter = 2
}
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestService(sem semantic.Config) *Service {
	return NewService(document.New(document.Config{}), document.NewLoader(), sem)
}

func TestAnalyzeSymbolSyntaxPath(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	// "counter = 2" sits on line 8, column 1 (zero-based, tab indented).
	rep, err := svc.AnalyzeSymbol(context.Background(), path, 8, 1, false)
	require.NoError(t, err)
	require.NotNil(t, rep.Variable)
	assert.Equal(t, "counter", rep.Variable.Name)
	assert.True(t, rep.Variable.PotentialRace)
	assert.Equal(t, ResolvedSyntax, rep.Resolution)
	assert.Len(t, rep.Decorations, 3)
	assert.False(t, rep.ParseInfo.CacheHit)
	require.NotNil(t, rep.Context)
	assert.Equal(t, "identifier", rep.Context.NodeKind)
	assert.Equal(t, analysis.ContextAssignment, rep.Context.Context)
}

func TestAnalyzeSymbolUnresolvedIsEmptyNotError(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	rep, err := svc.AnalyzeSymbol(context.Background(), path, 0, 0, false)
	require.NoError(t, err)
	assert.Nil(t, rep.Variable)
	assert.Empty(t, rep.Decorations)
}

func TestAnalyzeSymbolMissingFile(t *testing.T) {
	svc := newTestService(semantic.Config{})

	_, err := svc.AnalyzeSymbol(context.Background(), filepath.Join(t.TempDir(), "absent.go"), 0, 0, false)
	assert.Error(t, err)
}

func TestAnalyzeSymbolCacheHitOnSecondRequest(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	_, err := svc.AnalyzeSymbol(context.Background(), path, 8, 1, false)
	require.NoError(t, err)
	rep, err := svc.AnalyzeSymbol(context.Background(), path, 8, 1, false)
	require.NoError(t, err)
	assert.True(t, rep.ParseInfo.CacheHit)
}

func TestAnalyzeSymbolSemanticPreemption(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell helper fixtures are unix-only")
	}
	path := writeFixture(t, fixture)
	helper := filepath.Join(t.TempDir(), "helper.sh")
	payload := `{"name":"counter","decl":{"start":{"line":2,"col":4},"end":{"line":2,"col":11}},` +
		`"uses":[{"range":{"start":{"line":8,"col":1},"end":{"line":8,"col":8}},"reassign":true,"captured":false}],"is_pointer":false}`
	require.NoError(t, os.WriteFile(helper, []byte("#!/bin/sh\ncat > /dev/null\necho '"+payload+"'\n"), 0o755))

	svc := newTestService(semantic.Config{Enabled: true, HelperPath: helper, Timeout: 5 * time.Second})
	rep, err := svc.AnalyzeSymbol(context.Background(), path, 8, 1, true)
	require.NoError(t, err)
	assert.Equal(t, ResolvedSemantic, rep.Resolution)
	require.NotNil(t, rep.Variable)
	require.NotNil(t, rep.Context)
	assert.Equal(t, analysis.ContextAssignment, rep.Context.Context)
	assert.Equal(t, "counter", rep.Variable.Name)
	require.Len(t, rep.Decorations, 2)
	assert.Equal(t, report.KindDeclaration, rep.Decorations[0].Kind)
	assert.Equal(t, report.KindAliasReassigned, rep.Decorations[1].Kind)
	require.Len(t, rep.Lifecycle, 1)
	assert.True(t, rep.Lifecycle[0].Reassign)
}

func TestAnalyzeSymbolSemanticFallbackOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell helper fixtures are unix-only")
	}
	path := writeFixture(t, fixture)
	helper := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(helper, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	svc := newTestService(semantic.Config{Enabled: true, HelperPath: helper, Timeout: 5 * time.Second})
	rep, err := svc.AnalyzeSymbol(context.Background(), path, 8, 1, false)
	require.NoError(t, err)
	assert.Equal(t, ResolvedSyntax, rep.Resolution)
	require.NotNil(t, rep.Variable)
	assert.Equal(t, "counter", rep.Variable.Name)
}

func TestFileGraph(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	graph, err := svc.FileGraph(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, graph)
	assert.NotEmpty(t, graph.Nodes)
}

func TestDumpTree(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	dump, err := svc.DumpTree(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, dump, "source_file")
	assert.Contains(t, dump, "go_statement")
}

func TestEntityCounts(t *testing.T) {
	path := writeFixture(t, fixture)
	svc := newTestService(semantic.Config{})

	counts, err := svc.EntityCounts(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, analysis.EntityCount{Variables: 1, Functions: 1, Goroutines: 1}, counts)
}
