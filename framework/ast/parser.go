package ast

import (
	"fmt"
	"sort"
)

// Function is a top-level function definition located in a source file.
// Lines are 1-based and inclusive.
type Function struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Source    string `json:"source"`
	// Placeholder is set when the body holds nothing but an optional
	// docstring and no-op statements.
	Placeholder bool `json:"placeholder"`
}

// Complete reports the structural completeness verdict.
func (f Function) Complete() bool { return !f.Placeholder }

// SyntaxError locates the first problem found while validating code.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser understands one source language.
type Parser interface {
	Language() string
	// Validate returns nil when code parses cleanly. Code may be a whole
	// file or a standalone snippet such as a single function.
	Validate(code string) error
	// Functions lists top-level function definitions in source order.
	Functions(content []byte) ([]Function, error)
}

// ParserRegistry keeps parser implementations keyed by language.
type ParserRegistry struct {
	parsers  map[string]Parser
	detector *LanguageDetector
}

// NewParserRegistry constructs an empty registry.
func NewParserRegistry(detector *LanguageDetector) *ParserRegistry {
	if detector == nil {
		detector = NewLanguageDetector()
	}
	return &ParserRegistry{parsers: make(map[string]Parser), detector: detector}
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *ParserRegistry {
	reg := NewParserRegistry(nil)
	reg.Register(NewPythonParser())
	reg.Register(NewGoParser())
	return reg
}

// Register adds a parser keyed by its Language.
func (pr *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}
	pr.parsers[parser.Language()] = parser
}

// GetParser retrieves a parser by language identifier.
func (pr *ParserRegistry) GetParser(language string) (Parser, bool) {
	parser, ok := pr.parsers[language]
	return parser, ok
}

// ForFile resolves the parser responsible for path.
func (pr *ParserRegistry) ForFile(path string) (Parser, bool) {
	return pr.GetParser(pr.detector.Detect(path))
}

// IsSource reports whether path is handled by a registered parser.
func (pr *ParserRegistry) IsSource(path string) bool {
	_, ok := pr.ForFile(path)
	return ok
}

// Languages lists registered languages.
func (pr *ParserRegistry) Languages() []string {
	out := make([]string, 0, len(pr.parsers))
	for lang := range pr.parsers {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// FirstFunctionName returns the name of the first function defined in code.
func FirstFunctionName(p Parser, code string) (string, bool) {
	fns, err := p.Functions([]byte(code))
	if err != nil || len(fns) == 0 {
		return "", false
	}
	return fns[0].Name, true
}

// FindFunction returns the function called name, if defined.
func FindFunction(fns []Function, name string) (Function, bool) {
	for _, fn := range fns {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}
