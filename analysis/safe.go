package analysis

import (
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// The Safe* wrappers isolate faults per entry point: a panic inside any
// heuristic on a malformed or adversarial tree is converted to an absent
// result instead of crashing the host. Detectors themselves signal expected
// misses with zero values; the recover barrier exists only for violated
// invariants.

func recoverTo(name string) {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "analysis: recovered in %s: %v\n", name, r)
	}
}

// SafeVariableAt is VariableAt behind a panic barrier.
func SafeVariableAt(tree *sitter.Tree, src []byte, pos Position) (info *VariableInfo) {
	defer recoverTo("VariableAt")
	return VariableAt(tree, src, pos)
}

// SafeCursorContextAt is CursorContextAt behind a panic barrier.
func SafeCursorContextAt(tree *sitter.Tree, pos Position) (ctx *CursorContext) {
	defer recoverTo("CursorContextAt")
	return CursorContextAt(tree, pos)
}

// SafeIsReassignment is IsReassignment behind a panic barrier.
func SafeIsReassignment(tree *sitter.Tree, name string, useRange Range, src []byte) (ok bool) {
	defer recoverTo("IsReassignment")
	return IsReassignment(tree, name, useRange, src)
}

// SafeIsCaptured is IsCaptured behind a panic barrier.
func SafeIsCaptured(tree *sitter.Tree, useRange, declRange Range) (ok bool) {
	defer recoverTo("IsCaptured")
	return IsCaptured(tree, useRange, declRange)
}

// SafeIsInGoroutine is IsInGoroutine behind a panic barrier.
func SafeIsInGoroutine(tree *sitter.Tree, rng Range) (ok bool) {
	defer recoverTo("IsInGoroutine")
	return IsInGoroutine(tree, rng)
}

// SafeIsSynchronized is IsSynchronized behind a panic barrier.
func SafeIsSynchronized(tree *sitter.Tree, rng Range, src []byte, syncFuncs map[string]bool) (ok bool) {
	defer recoverTo("IsSynchronized")
	return IsSynchronized(tree, rng, src, syncFuncs)
}

// SafeIsInAtomicContext is IsInAtomicContext behind a panic barrier.
func SafeIsInAtomicContext(tree *sitter.Tree, rng Range, src []byte) (ok bool) {
	defer recoverTo("IsInAtomicContext")
	return IsInAtomicContext(tree, rng, src)
}

// SafeRaceSeverity is RaceSeverity behind a panic barrier; a fault yields
// Medium, the neutral verdict.
func SafeRaceSeverity(tree *sitter.Tree, rng Range, src []byte, isWrite bool, syncFuncs map[string]bool) (severity Severity) {
	severity = SeverityMedium
	defer recoverTo("RaceSeverity")
	severity = RaceSeverity(tree, rng, src, isWrite, syncFuncs)
	return severity
}

// SafeIsHeavyWorkCall is IsHeavyWorkCall behind a panic barrier.
func SafeIsHeavyWorkCall(tree *sitter.Tree, rng Range, src []byte) (ok bool) {
	defer recoverTo("IsHeavyWorkCall")
	return IsHeavyWorkCall(tree, rng, src)
}

// SafeIsValueCopyContext is IsValueCopyContext behind a panic barrier.
func SafeIsValueCopyContext(tree *sitter.Tree, rng Range, src []byte) (ok bool) {
	defer recoverTo("IsValueCopyContext")
	return IsValueCopyContext(tree, rng, src)
}

// SafeCountEntities is CountEntities behind a panic barrier.
func SafeCountEntities(tree *sitter.Tree, src []byte) (counts EntityCount) {
	defer recoverTo("CountEntities")
	return CountEntities(tree, src)
}

// SafeBuildGraph is BuildGraph behind a panic barrier; a fault yields an
// empty graph.
func SafeBuildGraph(tree *sitter.Tree, src []byte) (data *GraphData) {
	data = &GraphData{}
	defer recoverTo("BuildGraph")
	data = BuildGraph(tree, src)
	return data
}
