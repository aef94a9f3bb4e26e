package ast

import (
	"errors"
	goast "go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

const snippetPackage = "package snippet\n"

// GoParser builds function data using go/parser.
type GoParser struct{}

// NewGoParser returns a ready-to-use Go parser.
func NewGoParser() *GoParser { return &GoParser{} }

func (gp *GoParser) Language() string { return "go" }

// parse accepts whole files and bare declarations; the latter are wrapped
// in a synthetic package clause and the returned offset undoes the shift.
func (gp *GoParser) parse(content string) (*token.FileSet, *goast.File, int, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err == nil {
		return fset, file, 0, nil
	}
	if hasPackageClause(content) {
		return nil, nil, 0, convertGoError(err, 0)
	}
	fset = token.NewFileSet()
	file, err = parser.ParseFile(fset, "", snippetPackage+content, parser.ParseComments)
	if err != nil {
		return nil, nil, 0, convertGoError(err, 1)
	}
	return fset, file, 1, nil
}

// Validate parses code as a file or a declaration list.
func (gp *GoParser) Validate(code string) error {
	_, _, _, err := gp.parse(code)
	return err
}

// Functions lists top-level functions and methods. Methods are named
// Receiver.Method. The span starts at the doc comment when there is one.
func (gp *GoParser) Functions(content []byte) ([]Function, error) {
	src := string(content)
	fset, file, offset, err := gp.parse(src)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		src = snippetPackage + src
	}
	var out []Function
	for _, decl := range file.Decls {
		fn, ok := decl.(*goast.FuncDecl)
		if !ok {
			continue
		}
		start := fn.Pos()
		if fn.Doc != nil {
			start = fn.Doc.Pos()
		}
		startPos := fset.Position(start)
		endPos := fset.Position(fn.End())
		out = append(out, Function{
			Name:        goFuncName(fn),
			StartLine:   startPos.Line - offset,
			EndLine:     endPos.Line - offset,
			Source:      src[startPos.Offset:endPos.Offset],
			Placeholder: goPlaceholder(fn),
		})
	}
	return out, nil
}

func goFuncName(fn *goast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *goast.StarExpr:
			expr = t.X
			continue
		case *goast.IndexExpr:
			expr = t.X
			continue
		case *goast.IndexListExpr:
			expr = t.X
			continue
		case *goast.Ident:
			return t.Name + "." + fn.Name.Name
		}
		return fn.Name.Name
	}
}

// goPlaceholder treats an empty body, or one consisting solely of a panic
// with a literal message, as a stub.
func goPlaceholder(fn *goast.FuncDecl) bool {
	if fn.Body == nil || len(fn.Body.List) == 0 {
		return true
	}
	if len(fn.Body.List) != 1 {
		return false
	}
	expr, ok := fn.Body.List[0].(*goast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := expr.X.(*goast.CallExpr)
	if !ok {
		return false
	}
	ident, ok := call.Fun.(*goast.Ident)
	if !ok || ident.Name != "panic" || len(call.Args) != 1 {
		return false
	}
	lit, ok := call.Args[0].(*goast.BasicLit)
	return ok && lit.Kind == token.STRING
}

func hasPackageClause(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		return strings.HasPrefix(trimmed, "package ")
	}
	return false
}

func convertGoError(err error, offset int) error {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return &SyntaxError{Line: first.Pos.Line - offset, Column: first.Pos.Column, Message: first.Msg}
	}
	return &SyntaxError{Line: 1, Message: err.Error()}
}
