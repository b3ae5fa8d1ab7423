// Package report layers presentation verdicts on top of the analysis core:
// one decoration per declaration and use, plus file diagnostics derived from
// the field and struct heuristics.
package report

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/raceview/raceview/analysis"
)

// DecorationKind names the visual category of one decorated range.
type DecorationKind string

const (
	KindDeclaration     DecorationKind = "declaration"
	KindUse             DecorationKind = "use"
	KindPointer         DecorationKind = "pointer"
	KindRace            DecorationKind = "race"
	KindRaceLow         DecorationKind = "raceLow"
	KindAliasReassigned DecorationKind = "aliasReassigned"
	KindAliasCaptured   DecorationKind = "aliasCaptured"
)

// colorKeys maps every decoration kind to its stable theme key.
var colorKeys = map[DecorationKind]string{
	KindDeclaration:     "declarationColor",
	KindUse:             "useColor",
	KindPointer:         "pointerColor",
	KindRace:            "raceColor",
	KindRaceLow:         "raceLowColor",
	KindAliasReassigned: "aliasReassignedColor",
	KindAliasCaptured:   "aliasCapturedColor",
}

// Decoration is one highlighted range with its category and hover message.
type Decoration struct {
	Range    analysis.Range `json:"range"`
	Kind     DecorationKind `json:"kind"`
	ColorKey string         `json:"colorKey"`
	Message  string         `json:"message,omitempty"`
}

// DiagSeverity is the two-level diagnostic severity.
type DiagSeverity string

const (
	DiagInfo    DiagSeverity = "info"
	DiagWarning DiagSeverity = "warning"
)

// Diagnostic codes, one per heuristic.
const (
	CodeFieldRaceHigh        = "field-race-high"
	CodeFieldMixedAtomic     = "field-mixed-atomic"
	CodeFieldLockCoverage    = "field-lock-coverage"
	CodeFieldHeavyUnderLock  = "field-heavy-under-lock"
	CodeFieldRetention       = "field-retention"
	CodeFieldWriteOnly       = "field-write-only"
	CodeFieldReadBeforeWrite = "field-read-before-write"
	CodeStructLargeCopy      = "struct-large-copy"
)

// Diagnostic is one heuristic finding attached to a source range.
type Diagnostic struct {
	Range    analysis.Range `json:"range"`
	Severity DiagSeverity   `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
}

// LifecyclePoint records the expected verdict at one position, used by
// fixture-driven verification.
type LifecyclePoint struct {
	Name      string         `json:"name"`
	Range     analysis.Range `json:"range"`
	Kind      DecorationKind `json:"kind"`
	ColorKey  string         `json:"colorKey"`
	IsPointer bool           `json:"isPointer"`
	Reassign  bool           `json:"reassign"`
	Captured  bool           `json:"captured"`
}

// Options controls optional report output.
type Options struct {
	Lifecycle bool
}

// Result is the full report for one symbol request. Variable is nil when the
// position does not resolve; that is an empty result, not an error.
type Result struct {
	Variable    *analysis.VariableInfo `json:"variable"`
	Decorations []Decoration           `json:"decorations"`
	Diagnostics []Diagnostic           `json:"diagnostics,omitempty"`
	Lifecycle   []LifecyclePoint       `json:"lifecycle,omitempty"`
}

// useMeta is the per-use verdict set computed once and consumed by both
// decoration selection and diagnostics.
type useMeta struct {
	rng          analysis.Range
	reassign     bool
	captured     bool
	inGoroutine  bool
	synchronized bool
	atomic       bool
	heavy        bool
	severity     analysis.Severity
}

// Analyze resolves the symbol at pos and produces decorations and diagnostics
// for it.
func Analyze(tree *sitter.Tree, src []byte, pos analysis.Position, opts Options) *Result {
	result := &Result{}
	info := analysis.SafeVariableAt(tree, src, pos)
	if info == nil {
		return result
	}
	result.Variable = info

	syncFuncs := analysis.CollectSyncFuncs(tree, src)
	isField := analysis.IsStructFieldDecl(tree, info.Declaration)
	// Race and capture decorations only make sense for state that outlives a
	// single function activation: struct fields and package-level symbols.
	raceEligible := isField || analysis.IsGlobalDecl(tree, info.Declaration)

	metas := make([]useMeta, 0, len(info.Uses))
	for _, use := range info.Uses {
		meta := useMeta{rng: use}
		meta.reassign = analysis.SafeIsReassignment(tree, info.Name, use, src)
		if !meta.reassign {
			meta.captured = analysis.SafeIsCaptured(tree, use, info.Declaration)
		}
		meta.inGoroutine = analysis.SafeIsInGoroutine(tree, use)
		meta.synchronized = analysis.SafeIsSynchronized(tree, use, src, syncFuncs)
		meta.atomic = analysis.SafeIsInAtomicContext(tree, use, src)
		meta.heavy = analysis.SafeIsHeavyWorkCall(tree, use, src)
		meta.severity = analysis.SafeRaceSeverity(tree, use, src, meta.reassign, syncFuncs)
		metas = append(metas, meta)
	}

	result.Decorations = append(result.Decorations, Decoration{
		Range:    info.Declaration,
		Kind:     KindDeclaration,
		ColorKey: colorKeys[KindDeclaration],
		Message:  fmt.Sprintf("declaration of %s", info.Name),
	})

	for _, meta := range metas {
		kind := useKind(info, meta, raceEligible)
		if kind == KindRace || kind == KindRaceLow {
			info.PotentialRace = true
			info.RaceSeverity = meta.severity
		}
		result.Decorations = append(result.Decorations, Decoration{
			Range:    meta.rng,
			Kind:     kind,
			ColorKey: colorKeys[kind],
			Message:  useMessage(info.Name, kind, meta),
		})
	}

	result.Diagnostics = diagnose(tree, src, info, metas, isField)

	if opts.Lifecycle {
		result.Lifecycle = lifecyclePoints(info, result.Decorations, metas)
	}
	return result
}

// useKind selects the decoration category for one use. Race categories apply
// only to eligible symbols accessed inside a spawned unit and not through a
// closure capture; sequential reassignments and captures decorate as aliases,
// and pointer-ness is the weakest distinguished state.
func useKind(info *analysis.VariableInfo, meta useMeta, raceEligible bool) DecorationKind {
	if raceEligible && meta.inGoroutine && !meta.captured {
		if meta.severity == analysis.SeverityLow {
			return KindRaceLow
		}
		return KindRace
	}
	if meta.reassign {
		return KindAliasReassigned
	}
	if meta.captured {
		return KindAliasCaptured
	}
	if info.IsPointer {
		return KindPointer
	}
	return KindUse
}

func useMessage(name string, kind DecorationKind, meta useMeta) string {
	switch kind {
	case KindRace:
		return fmt.Sprintf("%s: potential data race (%s)", name, meta.severity)
	case KindRaceLow:
		return fmt.Sprintf("%s: access synchronized, residual risk low", name)
	case KindAliasReassigned:
		return fmt.Sprintf("%s is reassigned here", name)
	case KindAliasCaptured:
		return fmt.Sprintf("%s is captured by a closure or goroutine", name)
	case KindPointer:
		return fmt.Sprintf("%s: pointer-like use", name)
	default:
		return fmt.Sprintf("use of %s", name)
	}
}

// diagnose runs the heuristics pack. Each code fires at most once per request
// (first match wins) and each use range carries at most one diagnostic (first
// writer wins).
func diagnose(tree *sitter.Tree, src []byte, info *analysis.VariableInfo, metas []useMeta, isField bool) []Diagnostic {
	var out []Diagnostic
	emitted := make(map[string]bool)
	taken := make(map[analysis.Range]bool)

	add := func(code string, severity DiagSeverity, rng analysis.Range, message string) {
		if emitted[code] || taken[rng] {
			return
		}
		emitted[code] = true
		taken[rng] = true
		out = append(out, Diagnostic{Range: rng, Severity: severity, Code: code, Message: message})
	}

	if !isField {
		if !info.IsPointer {
			for _, meta := range metas {
				if analysis.SafeIsValueCopyContext(tree, meta.rng, src) {
					add(CodeStructLargeCopy, DiagInfo, meta.rng,
						fmt.Sprintf("%s is passed by value here; a large struct would be copied", info.Name))
					break
				}
			}
		}
		return out
	}

	fieldKind := analysis.FieldTypeKindAt(tree, info.Declaration, src)

	for _, meta := range metas {
		if meta.severity == analysis.SeverityHigh {
			add(CodeFieldRaceHigh, DiagWarning, meta.rng,
				fmt.Sprintf("field %s is accessed without synchronization in a concurrent context", info.Name))
			break
		}
	}

	var atomicUses, plainUses int
	for _, meta := range metas {
		if meta.atomic {
			atomicUses++
		} else {
			plainUses++
		}
	}
	if atomicUses > 0 && plainUses > 0 {
		for _, meta := range metas {
			if !meta.atomic {
				add(CodeFieldMixedAtomic, DiagWarning, meta.rng,
					fmt.Sprintf("field %s mixes atomic and plain accesses", info.Name))
				break
			}
		}
	}

	var syncUses, unsyncUses int
	for _, meta := range metas {
		if meta.synchronized {
			syncUses++
		} else {
			unsyncUses++
		}
	}
	if syncUses > 0 && unsyncUses > 0 {
		for _, meta := range metas {
			if !meta.synchronized {
				add(CodeFieldLockCoverage, DiagWarning, meta.rng,
					fmt.Sprintf("field %s is locked on some paths but not on this one", info.Name))
				break
			}
		}
	}

	for _, meta := range metas {
		if meta.synchronized && meta.heavy {
			add(CodeFieldHeavyUnderLock, DiagInfo, meta.rng,
				fmt.Sprintf("heavy operation on %s while a lock is held", info.Name))
			break
		}
	}

	for _, meta := range metas {
		if !meta.reassign {
			continue
		}
		if msg := analysis.RetentionRisk(tree, meta.rng, fieldKind); msg != "" {
			add(CodeFieldRetention, DiagInfo, meta.rng, msg)
			break
		}
	}

	if len(metas) >= 2 {
		writeOnly := true
		for _, meta := range metas {
			if !meta.reassign {
				writeOnly = false
				break
			}
		}
		if writeOnly {
			add(CodeFieldWriteOnly, DiagInfo, metas[0].rng,
				fmt.Sprintf("field %s is written but never read", info.Name))
		}
	}

	if rng, ok := readBeforeWrite(tree, metas); ok {
		add(CodeFieldReadBeforeWrite, DiagInfo, rng,
			fmt.Sprintf("field %s is read before its first write in this function", info.Name))
	}

	return out
}

// readBeforeWrite groups uses by enclosing function and reports the first read
// preceding the first write within one group. Uses arrive in source order.
func readBeforeWrite(tree *sitter.Tree, metas []useMeta) (analysis.Range, bool) {
	type state struct {
		firstRead analysis.Range
		hasRead   bool
		hasWrite  bool
	}
	groups := make(map[analysis.Range]*state)
	var order []analysis.Range
	for _, meta := range metas {
		key, ok := analysis.ContextKey(tree, meta.rng)
		if !ok {
			continue
		}
		st := groups[key]
		if st == nil {
			st = &state{}
			groups[key] = st
			order = append(order, key)
		}
		if meta.reassign {
			st.hasWrite = true
			continue
		}
		if !st.hasWrite && !st.hasRead {
			st.firstRead = meta.rng
			st.hasRead = true
		}
	}
	for _, key := range order {
		st := groups[key]
		if st.hasRead && st.hasWrite {
			return st.firstRead, true
		}
	}
	return analysis.Range{}, false
}

func lifecyclePoints(info *analysis.VariableInfo, decorations []Decoration, metas []useMeta) []LifecyclePoint {
	points := make([]LifecyclePoint, 0, len(decorations))
	points = append(points, LifecyclePoint{
		Name:      info.Name,
		Range:     info.Declaration,
		Kind:      KindDeclaration,
		ColorKey:  colorKeys[KindDeclaration],
		IsPointer: info.IsPointer,
	})
	// decorations[0] is the declaration; use decorations align with metas.
	for i, meta := range metas {
		dec := decorations[i+1]
		points = append(points, LifecyclePoint{
			Name:      info.Name,
			Range:     meta.rng,
			Kind:      dec.Kind,
			ColorKey:  dec.ColorKey,
			IsPointer: info.IsPointer,
			Reassign:  meta.reassign,
			Captured:  meta.captured,
		})
	}
	return points
}
