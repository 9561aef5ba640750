package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codectx/internal/parser"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func discover(t *testing.T, root string, include, ignore []string, useGitIgnore bool) []ProjectFile {
	t.Helper()
	filter, err := newPathFilter(root, include, ignore, useGitIgnore)
	require.NoError(t, err)
	files, err := discoverFiles(root, filter)
	require.NoError(t, err)
	return files
}

func relPaths(files []ProjectFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestDiscoverFindsSupportedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/util.py", "x = 1\n")
	writeFile(t, root, "README.md", "# readme\n")

	files := discover(t, root, DefaultInclude, DefaultIgnore, false)
	paths := relPaths(files)

	assert.ElementsMatch(t, []string{"main.go", "pkg/util.py"}, paths)

	for _, f := range files {
		assert.Equal(t, FilePending, f.Status)
		assert.NotEmpty(t, f.ID)
		assert.True(t, filepath.IsAbs(f.Path))
	}
}

func TestDiscoverSkipsIgnoredTrees(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {}\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")

	files := discover(t, root, DefaultInclude, DefaultIgnore, false)
	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestDiscoverHonorsGitIgnore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.go\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "generated.go", "package main\n")

	files := discover(t, root, DefaultInclude, DefaultIgnore, true)
	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestDiscoverSkipsEmptyFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/mod.py", "def f():\n    return 1\n")

	files := discover(t, root, DefaultInclude, DefaultIgnore, false)
	assert.Equal(t, []string{"pkg/mod.py"}, relPaths(files))
}

func TestDiscoverSkipsBinaries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	// A .go name with binary content must still be skipped.
	writeFile(t, root, "blob.go", "MZ\x00\x01\x02binary")

	files := discover(t, root, DefaultInclude, DefaultIgnore, false)
	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestDiscoverDetectsLanguage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "app.ts", "const x = 1;\n")
	writeFile(t, root, "main.rs", "fn main() {}\n")

	files := discover(t, root, DefaultInclude, DefaultIgnore, false)
	byPath := map[string]parser.Language{}
	for _, f := range files {
		byPath[f.RelPath] = f.Language
	}
	assert.Equal(t, parser.LangTypeScript, byPath["app.ts"])
	assert.Equal(t, parser.LangRust, byPath["main.rs"])
}

func TestDiscoverCustomInclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "script.py", "x = 1\n")

	files := discover(t, root, []string{"**/*.py"}, nil, false)
	assert.Equal(t, []string{"script.py"}, relPaths(files))
}

func TestDiscoverRootMustBeDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	filter, err := newPathFilter(root, DefaultInclude, nil, false)
	require.NoError(t, err)
	_, err = discoverFiles(filepath.Join(root, "main.go"), filter)
	require.Error(t, err)
}

func TestStatFileRejectsOutsideRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := statFile(root, "../escape.go")
	require.Error(t, err)
}

func TestErrorLedgerBounds(t *testing.T) {
	t.Parallel()

	ledger := newErrorLedger(2, 5)

	var overflow bool
	for i := 0; i < 4; i++ {
		_, overflow = ledger.record(ErrorParsing, SeverityError, "a.go", "boom")
	}
	assert.False(t, overflow)
	// Only two entries retained for a.go, but all four counted.
	assert.Len(t, ledger.snapshot(), 2)
	assert.Equal(t, 4, ledger.count())

	_, overflow = ledger.record(ErrorStorage, SeverityError, "b.go", "boom")
	assert.False(t, overflow)
	_, overflow = ledger.record(ErrorStorage, SeverityError, "c.go", "boom")
	assert.True(t, overflow, "sixth error exceeds the total bound of five")
}
