// raceview-semantic is the optional type-checker helper. It reads one JSON
// request from stdin, resolves the identifier at the requested position with
// go/types, and writes one JSON response to stdout. All positions on the wire
// are zero-based.
package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"log"
	"os"

	"golang.org/x/tools/go/ast/astutil"
)

type request struct {
	File    string `json:"file"`
	Module  string `json:"module"`
	Line    uint32 `json:"line"`
	Col     uint32 `json:"col"`
	Content string `json:"content"`
}

type point struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

type span struct {
	Start point `json:"start"`
	End   point `json:"end"`
}

type use struct {
	Range    span `json:"range"`
	Reassign bool `json:"reassign"`
	Captured bool `json:"captured"`
}

type response struct {
	Name      string `json:"name"`
	Decl      span   `json:"decl"`
	Uses      []use  `json:"uses"`
	IsPointer bool   `json:"is_pointer"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}
	var req request
	if err := json.Unmarshal(input, &req); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	if req.Content == "" {
		return fmt.Errorf("empty content")
	}

	fset := token.NewFileSet()
	name := req.File
	if name == "" {
		name = "input.go"
	}
	file, err := parser.ParseFile(fset, name, req.Content, parser.ParseComments)
	if file == nil {
		return fmt.Errorf("parsing content: %w", err)
	}

	info := &types.Info{
		Defs: make(map[*ast.Ident]types.Object),
		Uses: make(map[*ast.Ident]types.Object),
	}
	pkgPath := req.Module
	if pkgPath == "" {
		pkgPath = "main"
	}
	// Type errors are expected on incomplete buffers; resolution still works
	// for everything the checker managed to bind.
	conf := types.Config{
		Importer: importer.Default(),
		Error:    func(error) {},
	}
	_, _ = conf.Check(pkgPath, fset, []*ast.File{file}, info)

	obj := objectAt(fset, file, info, req.Line, req.Col)
	out := json.NewEncoder(os.Stdout)
	if obj == nil {
		return out.Encode(response{})
	}
	return out.Encode(buildResponse(fset, file, info, obj))
}

// objectAt maps the zero-based request position to the identifier's object.
func objectAt(fset *token.FileSet, file *ast.File, info *types.Info, line, col uint32) types.Object {
	tf := fset.File(file.Pos())
	if tf == nil || int(line)+1 > tf.LineCount() {
		return nil
	}
	pos := tf.LineStart(int(line)+1) + token.Pos(col)
	path, _ := astutil.PathEnclosingInterval(file, pos, pos)
	for _, node := range path {
		ident, ok := node.(*ast.Ident)
		if !ok {
			continue
		}
		if obj := info.ObjectOf(ident); obj != nil {
			return obj
		}
		return nil
	}
	return nil
}

func buildResponse(fset *token.FileSet, file *ast.File, info *types.Info, obj types.Object) response {
	resp := response{
		Name:      obj.Name(),
		Decl:      spanAt(fset, obj.Pos(), len(obj.Name())),
		Uses:      []use{},
		IsPointer: isPointerLike(obj.Type()),
	}
	ast.Inspect(file, func(node ast.Node) bool {
		ident, ok := node.(*ast.Ident)
		if !ok {
			return true
		}
		if ident.Pos() == obj.Pos() || info.ObjectOf(ident) != obj {
			return true
		}
		resp.Uses = append(resp.Uses, use{
			Range:    spanAt(fset, ident.Pos(), len(ident.Name)),
			Reassign: isWrite(file, ident),
			Captured: isCaptured(file, ident, obj.Pos()),
		})
		return true
	})
	return resp
}

func spanAt(fset *token.FileSet, pos token.Pos, width int) span {
	position := fset.Position(pos)
	start := point{Line: uint32(position.Line - 1), Col: uint32(position.Column - 1)}
	return span{Start: start, End: point{Line: start.Line, Col: start.Col + uint32(width)}}
}

// isWrite reports whether ident is an assignment target or inc/dec operand,
// including through selector and index chains.
func isWrite(file *ast.File, ident *ast.Ident) bool {
	path, _ := astutil.PathEnclosingInterval(file, ident.Pos(), ident.End())
	var child ast.Node = ident
	for _, node := range path[1:] {
		switch parent := node.(type) {
		case *ast.SelectorExpr, *ast.IndexExpr, *ast.ParenExpr:
			child = node
		case *ast.IncDecStmt:
			return true
		case *ast.AssignStmt:
			for _, lhs := range parent.Lhs {
				if lhs == child {
					// A := binding is a declaration, not a write.
					return parent.Tok.String() != ":="
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// isCaptured reports whether ident sits inside a function literal that does
// not contain the declaration.
func isCaptured(file *ast.File, ident *ast.Ident, declPos token.Pos) bool {
	path, _ := astutil.PathEnclosingInterval(file, ident.Pos(), ident.End())
	for _, node := range path {
		if lit, ok := node.(*ast.FuncLit); ok {
			return declPos < lit.Pos() || declPos >= lit.End()
		}
		if _, ok := node.(*ast.FuncDecl); ok {
			return false
		}
	}
	return false
}

func isPointerLike(t types.Type) bool {
	if t == nil {
		return false
	}
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature:
		return true
	}
	return false
}
