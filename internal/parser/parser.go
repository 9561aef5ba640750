package parser

import (
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	// ErrUnsupportedLanguage is returned when no grammar is registered
	// for the requested language tag.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed is returned when tree-sitter produces no tree at all.
	// This is distinct from a tree containing ERROR nodes, which is still
	// usable for partial processing.
	ErrParseFailed = errors.New("parse failed")
)

// SyntaxError is the 1-based location of an ERROR or MISSING node.
type SyntaxError struct {
	Line   int
	Column int
}

func (e SyntaxError) String() string {
	return fmt.Sprintf("syntax error at %d:%d", e.Line, e.Column)
}

// Result is the outcome of a robust parse.
//
// When the source contains syntax errors and the parser is configured to
// skip them, Tree is still populated (tree-sitter recovers around ERROR
// nodes) and ErrorsSkipped is true. When skipping is disabled, a tree
// with errors is discarded: Tree is nil and Success is false.
type Result struct {
	Tree          *sitter.Tree
	Errors        []SyntaxError
	Success       bool
	ErrorsSkipped bool
}

// Parser parses source text into syntax trees. A Parser is not safe for
// concurrent use; each indexing worker owns its own instance.
type Parser struct {
	skipSyntaxErrors bool
}

// New creates a parser. skipSyntaxErrors controls whether trees containing
// ERROR nodes are kept for partial processing (the resilient default) or
// treated as failed parses.
func New(skipSyntaxErrors bool) *Parser {
	return &Parser{skipSyntaxErrors: skipSyntaxErrors}
}

// Parse parses source into a syntax tree. The caller owns the returned
// tree and must Close it.
func (p *Parser) Parse(lang Language, source []byte) (*sitter.Tree, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, lang)
	}
	return tree, nil
}

// ParseRobust parses source and collects syntax errors instead of failing
// on them. filePath is used only for error context.
func (p *Parser) ParseRobust(filePath string, source []byte, lang Language) (*Result, error) {
	tree, err := p.Parse(lang, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	syntaxErrors := CollectSyntaxErrors(tree)
	if len(syntaxErrors) == 0 {
		return &Result{Tree: tree, Success: true}, nil
	}

	if p.skipSyntaxErrors {
		return &Result{
			Tree:          tree,
			Errors:        syntaxErrors,
			Success:       true,
			ErrorsSkipped: true,
		}, nil
	}

	tree.Close()
	return &Result{Errors: syntaxErrors}, nil
}

// CollectSyntaxErrors walks the tree depth-first and returns the 1-based
// locations of ERROR and MISSING nodes.
func CollectSyntaxErrors(tree *sitter.Tree) []SyntaxError {
	var found []SyntaxError
	Walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.IsError() || node.IsMissing() {
			line, column := Position(node.StartPosition())
			found = append(found, SyntaxError{Line: line, Column: column})
			// ERROR nodes can nest; no need to descend further.
			return false
		}
		// Subtrees without errors contain no ERROR nodes.
		return node.HasError()
	})
	return found
}

// Walk visits node and its descendants depth-first. The visitor returns
// false to skip a node's children.
func Walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), visit)
	}
}

// NodeText returns the source text spanned by a node.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// Position converts a 0-based tree-sitter point to a 1-based line/column.
func Position(point sitter.Point) (line, column int) {
	return int(point.Row) + 1, int(point.Column) + 1
}

// FindByKind returns all descendants of node with the given kind, in
// depth-first order.
func FindByKind(node *sitter.Node, kind string) []*sitter.Node {
	var found []*sitter.Node
	Walk(node, func(n *sitter.Node) bool {
		if n.Kind() == kind {
			found = append(found, n)
		}
		return true
	})
	return found
}

// CompileQuery compiles a structural query against a language's grammar.
func CompileQuery(lang Language, pattern string) (*sitter.Query, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	query, qerr := sitter.NewQuery(grammar, pattern)
	if qerr != nil {
		return nil, fmt.Errorf("compile query for %s: %s", lang, qerr.Message)
	}
	return query, nil
}
