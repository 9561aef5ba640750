package chunker

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codectx/internal/parser"
)

// Type classifies what a chunk represents.
type Type string

const (
	TypeFunction  Type = "function"
	TypeClass     Type = "class"
	TypeMethod    Type = "method"
	TypeInterface Type = "interface"
	TypeEnum      Type = "enum"
	TypeStruct    Type = "struct"
	TypeModule    Type = "module"
	TypeImport    Type = "import"
	TypeNamespace Type = "namespace"
)

// Metadata carries quality signals for downstream filtering.
type Metadata struct {
	NodeKind   string `json:"node_kind"`
	HasError   bool   `json:"has_error"`
	ByteLength int    `json:"byte_length"`
}

// Chunk is a semantically meaningful span of source code, the unit of
// embedding and retrieval. Embedding is populated by the embedding
// provider; everything else is set here.
type Chunk struct {
	ID        string
	FilePath  string
	Language  parser.Language
	Type      Type
	StartByte uint
	EndByte   uint
	StartLine int
	EndLine   int
	Content   string
	Name      string
	Signature string
	Docstring string
	Metadata  Metadata
	Embedding []float32
}

// ID derives a stable chunk identifier from the file path and byte span,
// so re-indexing the same span overwrites the stored point instead of
// duplicating it. The result is a valid UUID, which vector stores accept
// as a point id.
func ID(filePath string, startByte, endByte uint) string {
	seed := fmt.Sprintf("codectx:%s:%d-%d", filePath, startByte, endByte)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

type compiledQuery struct {
	chunkType Type
	query     *sitter.Query
}

// Chunker extracts typed chunks from syntax trees. Queries are compiled
// once per language on first use. A Chunker is not safe for concurrent
// use; each indexing worker owns its own instance.
type Chunker struct {
	compiled map[parser.Language][]compiledQuery
}

// New creates a chunker.
func New() *Chunker {
	return &Chunker{compiled: make(map[parser.Language][]compiledQuery)}
}

// Chunk runs the language's structural queries over the tree and returns
// the captured chunks. A nil tree (unsupported language), a language
// without registered queries, or queries with zero matches all fall back
// to a single whole-file module chunk: every processed file yields at
// least one chunk.
func (c *Chunker) Chunk(filePath string, tree *sitter.Tree, source []byte, lang parser.Language) []Chunk {
	if tree == nil {
		return []Chunk{wholeFileChunk(filePath, source, lang)}
	}

	root := tree.RootNode()
	var chunks []Chunk
	for _, cq := range c.queriesFor(lang) {
		chunks = append(chunks, runQuery(cq, root, filePath, source, lang)...)
	}

	if len(chunks) == 0 {
		return []Chunk{wholeFileChunk(filePath, source, lang)}
	}
	return chunks
}

func (c *Chunker) queriesFor(lang parser.Language) []compiledQuery {
	if compiled, ok := c.compiled[lang]; ok {
		return compiled
	}

	compiled := make([]compiledQuery, 0, len(languageQueries[lang]))
	for _, spec := range languageQueries[lang] {
		query, err := parser.CompileQuery(lang, spec.pattern)
		if err != nil {
			log.Printf("Warning: skipping %s %s query: %v", lang, spec.chunkType, err)
			continue
		}
		compiled = append(compiled, compiledQuery{chunkType: spec.chunkType, query: query})
	}
	c.compiled[lang] = compiled
	return compiled
}

func runQuery(cq compiledQuery, root *sitter.Node, filePath string, source []byte, lang parser.Language) []Chunk {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := cq.query.CaptureNames()

	var chunks []Chunk
	matches := cursor.Matches(cq.query, root, source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var chunkNode *sitter.Node
		var name, signature string
		for _, capture := range match.Captures {
			node := capture.Node
			switch captureNames[capture.Index] {
			case "chunk":
				chunkNode = &node
			case "name":
				name = parser.NodeText(&node, source)
			case "params":
				signature = parser.NodeText(&node, source)
			}
		}
		if chunkNode == nil {
			continue
		}

		startLine, _ := parser.Position(chunkNode.StartPosition())
		endLine, _ := parser.Position(chunkNode.EndPosition())
		content := parser.NodeText(chunkNode, source)

		chunk := Chunk{
			ID:        ID(filePath, chunkNode.StartByte(), chunkNode.EndByte()),
			FilePath:  filePath,
			Language:  lang,
			Type:      cq.chunkType,
			StartByte: chunkNode.StartByte(),
			EndByte:   chunkNode.EndByte(),
			StartLine: startLine,
			EndLine:   endLine,
			Content:   content,
			Name:      name,
			Signature: signature,
			Metadata: Metadata{
				NodeKind:   chunkNode.Kind(),
				HasError:   chunkNode.HasError(),
				ByteLength: len(content),
			},
		}

		if lang == parser.LangPython && (cq.chunkType == TypeFunction || cq.chunkType == TypeClass) {
			chunk.Docstring = pythonDocstring(chunkNode, source)
		}

		chunks = append(chunks, chunk)
	}
	return chunks
}

// pythonDocstring returns the leading string literal of a function or
// class body, if present.
func pythonDocstring(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return trimPythonQuotes(parser.NodeText(str, source))
}

func trimPythonQuotes(s string) string {
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) && len(s) >= 2*len(quote) {
			return strings.TrimSpace(s[len(quote) : len(s)-len(quote)])
		}
	}
	return s
}

func wholeFileChunk(filePath string, source []byte, lang parser.Language) Chunk {
	lines := bytes.Count(source, []byte("\n")) + 1
	return Chunk{
		ID:        ID(filePath, 0, uint(len(source))),
		FilePath:  filePath,
		Language:  lang,
		Type:      TypeModule,
		StartByte: 0,
		EndByte:   uint(len(source)),
		StartLine: 1,
		EndLine:   lines,
		Content:   string(source),
		Metadata: Metadata{
			NodeKind:   "source_file",
			ByteLength: len(source),
		},
	}
}
