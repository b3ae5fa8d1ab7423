package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a zero-based (line, column) pair over the source text.
type Position struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
}

// Range is a [start, end) span over positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// VarID identifies the physical declaration node of a variable by the byte
// offsets of its binding identifier. Two resolutions of the same source refer
// to the same variable iff their VarIDs are equal.
type VarID struct {
	StartByte uint32 `json:"startByte"`
	EndByte   uint32 `json:"endByte"`
}

// Severity is a three-level heuristic race verdict.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// VariableInfo is the declaration-centric analysis result for one variable.
// Declaration holds the binding identifier range; Uses holds every reference
// bound to the same declaration, in ascending source order. PotentialRace and
// RaceSeverity are populated during concurrency classification, not at
// construction time.
type VariableInfo struct {
	Name          string   `json:"name"`
	Declaration   Range    `json:"declaration"`
	Uses          []Range  `json:"uses"`
	IsPointer     bool     `json:"isPointer"`
	PotentialRace bool     `json:"potentialRace"`
	RaceSeverity  Severity `json:"raceSeverity"`
	VarID         VarID    `json:"varId"`
}

// EntityCount summarises declaration-form entities found in one file.
type EntityCount struct {
	Variables  int `json:"variables"`
	Functions  int `json:"functions"`
	Channels   int `json:"channels"`
	Goroutines int `json:"goroutines"`
}

// FieldTypeKind classifies a struct field's declared type for the retention
// heuristics.
type FieldTypeKind int

const (
	FieldOther FieldTypeKind = iota
	FieldSlice
	FieldString
	FieldMap
)

// declInfo describes a single binding form during scope resolution.
type declInfo struct {
	rng       Range
	varID     VarID
	isPointer bool
}

// scopeEntry is one frame of the lexical scope stack. At most one declaration
// of the searched name binds per frame; the first one found wins.
type scopeEntry struct {
	decl *declInfo
}

// atomicFuncs is the fixed allow-list of sync/atomic package functions the
// analyzer recognises as atomic operations.
var atomicFuncs = map[string]bool{
	"AddInt32": true, "AddInt64": true, "AddUint32": true, "AddUint64": true, "AddUintptr": true,
	"LoadInt32": true, "LoadInt64": true, "LoadUint32": true, "LoadUint64": true, "LoadUintptr": true, "LoadPointer": true,
	"StoreInt32": true, "StoreInt64": true, "StoreUint32": true, "StoreUint64": true, "StoreUintptr": true, "StorePointer": true,
	"SwapInt32": true, "SwapInt64": true, "SwapUint32": true, "SwapUint64": true, "SwapUintptr": true, "SwapPointer": true,
	"CompareAndSwapInt32": true, "CompareAndSwapInt64": true, "CompareAndSwapUint32": true,
	"CompareAndSwapUint64": true, "CompareAndSwapUintptr": true, "CompareAndSwapPointer": true,
}

// nodeRange converts a tree-sitter node span to a Range.
func nodeRange(node *sitter.Node) Range {
	start := node.StartPoint()
	end := node.EndPoint()
	return Range{
		Start: Position{Line: start.Row, Column: start.Column},
		End:   Position{Line: end.Row, Column: end.Column},
	}
}

// nodeVarID builds the byte-offset identity of a node.
func nodeVarID(node *sitter.Node) VarID {
	return VarID{StartByte: node.StartByte(), EndByte: node.EndByte()}
}

// text returns the source slice covered by node, or "" when offsets fall
// outside src (possible on a tree parsed from different content).
func text(src []byte, node *sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if int(start) > len(src) || int(end) > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}
