package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// RaceSeverity classifies an access point: Low when synchronized, High for
// unsynchronized writes or any unsynchronized access inside a spawned unit,
// Medium for the remaining unsynchronized reads.
func RaceSeverity(tree *sitter.Tree, rng Range, src []byte, isWrite bool, syncFuncs map[string]bool) Severity {
	if IsSynchronized(tree, rng, src, syncFuncs) {
		return SeverityLow
	}
	if IsInGoroutine(tree, rng) || isWrite {
		return SeverityHigh
	}
	return SeverityMedium
}
