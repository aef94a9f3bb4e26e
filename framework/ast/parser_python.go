package ast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser extracts functions from Python sources using tree-sitter.
type PythonParser struct{}

// NewPythonParser returns a ready-to-use Python parser.
func NewPythonParser() *PythonParser { return &PythonParser{} }

func (pp *PythonParser) Language() string { return "python" }

func (pp *PythonParser) parse(content []byte) (*sitter.Tree, error) {
	// A fresh parser per call; sitter parsers are not safe for reuse across
	// goroutines.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree, nil
}

// Validate reports the first syntax error tree-sitter finds in code.
func (pp *PythonParser) Validate(code string) error {
	content := []byte(code)
	tree, err := pp.parse(content)
	if err != nil {
		return err
	}
	defer tree.Close()
	root := tree.RootNode()
	if root == nil {
		return &SyntaxError{Line: 1, Message: "empty parse tree"}
	}
	if !root.HasError() {
		return nil
	}
	if bad := firstErrorNode(root, 0); bad != nil {
		point := bad.StartPoint()
		msg := "syntax error"
		if bad.IsMissing() {
			msg = "missing " + bad.Type()
		} else if text := strings.TrimSpace(bad.Content(content)); text != "" {
			msg = "unexpected " + clipText(text, 40)
		}
		return &SyntaxError{Line: int(point.Row) + 1, Column: int(point.Column), Message: msg}
	}
	return &SyntaxError{Line: 1, Message: "syntax error"}
}

func firstErrorNode(node *sitter.Node, depth int) *sitter.Node {
	if node == nil || depth > 1000 {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstErrorNode(node.Child(i), depth+1); found != nil {
			return found
		}
	}
	return nil
}

// Functions lists module-level def statements, decorated ones included.
// Files with syntax errors are rejected so callers never edit a span they
// cannot trust.
func (pp *PythonParser) Functions(content []byte) ([]Function, error) {
	tree, err := pp.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}
	if root.HasError() {
		return nil, pp.Validate(string(content))
	}
	var out []Function
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		outer := child
		def := child
		switch child.Type() {
		case "function_definition":
		case "decorated_definition":
			def = child.ChildByFieldName("definition")
			if def == nil || def.Type() != "function_definition" {
				continue
			}
		default:
			continue
		}
		name := def.ChildByFieldName("name")
		if name == nil {
			continue
		}
		out = append(out, Function{
			Name:        name.Content(content),
			StartLine:   int(outer.StartPoint().Row) + 1,
			EndLine:     endLine(outer),
			Source:      outer.Content(content),
			Placeholder: pythonPlaceholder(def.ChildByFieldName("body"), content),
		})
	}
	return out, nil
}

// pythonPlaceholder reports whether body is empty once a leading docstring
// is dropped, or holds only pass / ellipsis statements.
func pythonPlaceholder(body *sitter.Node, content []byte) bool {
	if body == nil {
		return true
	}
	var stmts []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) > 0 && isDocstring(stmts[0]) {
		stmts = stmts[1:]
	}
	for _, stmt := range stmts {
		switch {
		case stmt.Type() == "pass_statement":
		case stmt.Type() == "expression_statement" && stmt.NamedChildCount() == 1 &&
			stmt.NamedChild(0).Type() == "ellipsis":
		default:
			return false
		}
	}
	return true
}

func isDocstring(stmt *sitter.Node) bool {
	return stmt.Type() == "expression_statement" &&
		stmt.NamedChildCount() == 1 &&
		stmt.NamedChild(0).Type() == "string"
}

func endLine(node *sitter.Node) int {
	end := node.EndPoint()
	if end.Column == 0 && end.Row > node.StartPoint().Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

func clipText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
