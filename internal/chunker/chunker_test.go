package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codectx/internal/parser"
)

func parse(t *testing.T, lang parser.Language, source string) *parser.Result {
	t.Helper()
	p := parser.New(true)
	result, err := p.ParseRobust("test", []byte(source), lang)
	require.NoError(t, err)
	require.NotNil(t, result.Tree)
	t.Cleanup(result.Tree.Close)
	return result
}

func TestChunkGoFile(t *testing.T) {
	t.Parallel()

	source := `package main

import "fmt"

type Server struct {
	addr string
}

type Handler interface {
	Handle() error
}

func (s *Server) Start() error {
	return nil
}

func main() {
	fmt.Println("hi")
}
`
	result := parse(t, parser.LangGo, source)
	chunks := New().Chunk("main.go", result.Tree, []byte(source), parser.LangGo)

	byType := map[Type]int{}
	for _, c := range chunks {
		byType[c.Type]++
	}
	assert.Equal(t, 1, byType[TypeFunction], "main")
	assert.Equal(t, 1, byType[TypeMethod], "Start")
	assert.Equal(t, 1, byType[TypeStruct], "Server")
	assert.Equal(t, 1, byType[TypeInterface], "Handler")
	assert.Equal(t, 1, byType[TypeImport])

	var start *Chunk
	for i := range chunks {
		if chunks[i].Name == "Start" {
			start = &chunks[i]
		}
	}
	require.NotNil(t, start)
	assert.Equal(t, parser.LangGo, start.Language)
	assert.Equal(t, "main.go", start.FilePath)
	assert.Contains(t, start.Content, "func (s *Server) Start()")
	assert.Greater(t, start.EndLine, start.StartLine)
}

func TestChunkPythonDocstring(t *testing.T) {
	t.Parallel()

	source := `def greet(name):
    """Return a greeting for name."""
    return "hello " + name

class Greeter:
    """Greets people."""

    def run(self):
        pass
`
	result := parse(t, parser.LangPython, source)
	chunks := New().Chunk("greet.py", result.Tree, []byte(source), parser.LangPython)

	var fn, cls *Chunk
	for i := range chunks {
		switch {
		case chunks[i].Type == TypeFunction && chunks[i].Name == "greet":
			fn = &chunks[i]
		case chunks[i].Type == TypeClass && chunks[i].Name == "Greeter":
			cls = &chunks[i]
		}
	}
	require.NotNil(t, fn)
	require.NotNil(t, cls)
	assert.Equal(t, "Return a greeting for name.", fn.Docstring)
	assert.Equal(t, "Greets people.", cls.Docstring)
}

func TestChunkFallbackToWholeFile(t *testing.T) {
	t.Parallel()

	// A Go file with no declarations still yields one module chunk.
	source := "package empty\n"
	result := parse(t, parser.LangGo, source)
	chunks := New().Chunk("empty.go", result.Tree, []byte(source), parser.LangGo)

	require.Len(t, chunks, 1)
	assert.Equal(t, TypeModule, chunks[0].Type)
	assert.Equal(t, source, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestChunkNilTree(t *testing.T) {
	t.Parallel()

	chunks := New().Chunk("x.zig", nil, []byte("const x = 1;"), parser.Language("zig"))
	require.Len(t, chunks, 1)
	assert.Equal(t, TypeModule, chunks[0].Type)
}

func TestChunkIDStable(t *testing.T) {
	t.Parallel()

	a := ID("a.go", 10, 50)
	b := ID("a.go", 10, 50)
	c := ID("a.go", 10, 51)
	d := ID("b.go", 10, 50)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	// Vector stores require point ids to be UUIDs.
	assert.Len(t, a, 36)
}

func TestChunkTypeScriptInterfacesAndEnums(t *testing.T) {
	t.Parallel()

	source := `interface User {
  name: string;
}

enum Color {
  Red,
  Green,
}

function render(user: User): string {
  return user.name;
}
`
	result := parse(t, parser.LangTypeScript, source)
	chunks := New().Chunk("app.ts", result.Tree, []byte(source), parser.LangTypeScript)

	byType := map[Type]int{}
	for _, c := range chunks {
		byType[c.Type]++
	}
	assert.Equal(t, 1, byType[TypeInterface])
	assert.Equal(t, 1, byType[TypeEnum])
	assert.Equal(t, 1, byType[TypeFunction])
}

func TestChunkSyntaxErrorFileStillChunks(t *testing.T) {
	t.Parallel()

	// The first function is broken; the second should still be captured.
	source := `package main

func broken( {

func ok() {}
`
	result := parse(t, parser.LangGo, source)
	require.True(t, result.ErrorsSkipped)

	chunks := New().Chunk("partial.go", result.Tree, []byte(source), parser.LangGo)
	require.NotEmpty(t, chunks)

	var found bool
	for _, c := range chunks {
		if c.Name == "ok" {
			found = true
		}
	}
	assert.True(t, found, "intact function should survive a broken sibling")
}
