// Package tools exposes the analyzer over MCP: a service tying together the
// document store, the optional semantic helper, and the analysis/report
// layers, plus the tool registrations.
package tools

import (
	"context"
	"fmt"

	"github.com/raceview/raceview/analysis"
	"github.com/raceview/raceview/document"
	"github.com/raceview/raceview/report"
	"github.com/raceview/raceview/semantic"
)

// Resolution names which resolver produced a symbol report.
type Resolution string

const (
	ResolvedSemantic Resolution = "semantic"
	ResolvedSyntax   Resolution = "syntax"
)

// SymbolReport is the analyze_symbol payload.
type SymbolReport struct {
	Variable    *analysis.VariableInfo  `json:"variable"`
	Context     *analysis.CursorContext `json:"context,omitempty"`
	Decorations []report.Decoration     `json:"decorations"`
	Diagnostics []report.Diagnostic     `json:"diagnostics,omitempty"`
	Lifecycle   []report.LifecyclePoint `json:"lifecycle,omitempty"`
	Resolution  Resolution              `json:"resolution"`
	ParseInfo   document.ParseInfo      `json:"parseInfo"`
}

// Service answers tool requests.
type Service struct {
	store  *document.Store
	loader *document.Loader
	sem    semantic.Config
}

// NewService wires the collaborators together.
func NewService(store *document.Store, loader *document.Loader, sem semantic.Config) *Service {
	return &Service{store: store, loader: loader, sem: sem}
}

// AnalyzeSymbol resolves the symbol at (line, column) in file. The semantic
// helper, when enabled, pre-empts syntactic resolution; its failures fall
// back silently.
func (s *Service) AnalyzeSymbol(ctx context.Context, file string, line, column uint32, lifecycle bool) (*SymbolReport, error) {
	if err := s.loader.Ensure(ctx, s.store, file); err != nil {
		return nil, fmt.Errorf("reading %v: %w", file, err)
	}
	tree, src, info, err := s.store.Tree(ctx, file)
	if err != nil {
		return nil, err
	}

	pos := analysis.Position{Line: line, Column: column}
	cursor := analysis.SafeCursorContextAt(tree, pos)

	if v := semantic.Resolve(ctx, s.sem, file, line, column, src); v != nil {
		rep := semanticReport(v, lifecycle)
		rep.Context = cursor
		rep.Resolution = ResolvedSemantic
		rep.ParseInfo = info
		return rep, nil
	}

	result := report.Analyze(tree, src, pos, report.Options{Lifecycle: lifecycle})
	return &SymbolReport{
		Variable:    result.Variable,
		Context:     cursor,
		Decorations: result.Decorations,
		Diagnostics: result.Diagnostics,
		Lifecycle:   result.Lifecycle,
		Resolution:  ResolvedSyntax,
		ParseInfo:   info,
	}, nil
}

// semanticReport converts a helper answer into decorations. Race
// classification stays syntax-level; the helper contributes exact resolution
// and per-use flags only.
func semanticReport(v *semantic.Variable, lifecycle bool) *SymbolReport {
	info := &analysis.VariableInfo{
		Name:         v.Name,
		Declaration:  spanToRange(v.Decl),
		IsPointer:    v.IsPointer,
		RaceSeverity: analysis.SeverityMedium,
	}
	rep := &SymbolReport{Variable: info}
	rep.Decorations = append(rep.Decorations, report.Decoration{
		Range:    info.Declaration,
		Kind:     report.KindDeclaration,
		ColorKey: "declarationColor",
		Message:  fmt.Sprintf("declaration of %s", v.Name),
	})
	for _, use := range v.Uses {
		rng := spanToRange(use.Range)
		info.Uses = append(info.Uses, rng)
		kind := report.KindUse
		colorKey := "useColor"
		message := fmt.Sprintf("use of %s", v.Name)
		switch {
		case use.Reassign:
			kind = report.KindAliasReassigned
			colorKey = "aliasReassignedColor"
			message = fmt.Sprintf("%s is reassigned here", v.Name)
		case use.Captured:
			kind = report.KindAliasCaptured
			colorKey = "aliasCapturedColor"
			message = fmt.Sprintf("%s is captured by a closure or goroutine", v.Name)
		case v.IsPointer:
			kind = report.KindPointer
			colorKey = "pointerColor"
			message = fmt.Sprintf("%s: pointer-like use", v.Name)
		}
		rep.Decorations = append(rep.Decorations, report.Decoration{
			Range: rng, Kind: kind, ColorKey: colorKey, Message: message,
		})
		if lifecycle {
			rep.Lifecycle = append(rep.Lifecycle, report.LifecyclePoint{
				Name:      v.Name,
				Range:     rng,
				Kind:      kind,
				ColorKey:  colorKey,
				IsPointer: v.IsPointer,
				Reassign:  use.Reassign,
				Captured:  use.Captured,
			})
		}
	}
	return rep
}

func spanToRange(span semantic.Span) analysis.Range {
	return analysis.Range{
		Start: analysis.Position{Line: span.Start.Line, Column: span.Start.Col},
		End:   analysis.Position{Line: span.End.Line, Column: span.End.Col},
	}
}

// FileGraph builds the entity graph for file.
func (s *Service) FileGraph(ctx context.Context, file string) (*analysis.GraphData, error) {
	if err := s.loader.Ensure(ctx, s.store, file); err != nil {
		return nil, fmt.Errorf("reading %v: %w", file, err)
	}
	tree, src, _, err := s.store.Tree(ctx, file)
	if err != nil {
		return nil, err
	}
	return analysis.SafeBuildGraph(tree, src), nil
}

// DumpTree renders the raw parse tree of file.
func (s *Service) DumpTree(ctx context.Context, file string) (string, error) {
	if err := s.loader.Ensure(ctx, s.store, file); err != nil {
		return "", fmt.Errorf("reading %v: %w", file, err)
	}
	tree, src, _, err := s.store.Tree(ctx, file)
	if err != nil {
		return "", err
	}
	return analysis.DumpTree(tree, src), nil
}

// EntityCounts tallies file entities.
func (s *Service) EntityCounts(ctx context.Context, file string) (analysis.EntityCount, error) {
	if err := s.loader.Ensure(ctx, s.store, file); err != nil {
		return analysis.EntityCount{}, fmt.Errorf("reading %v: %w", file, err)
	}
	tree, src, _, err := s.store.Tree(ctx, file)
	if err != nil {
		return analysis.EntityCount{}, err
	}
	return analysis.SafeCountEntities(tree, src), nil
}
