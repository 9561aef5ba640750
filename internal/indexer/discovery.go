package indexer

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/google/uuid"

	"github.com/mvp-joe/codectx/internal/parser"
)

// pathFilter decides which relative paths an indexing run touches. It is
// shared by discovery and the file watcher so both see the same set.
type pathFilter struct {
	include []glob.Glob
	ignore  []glob.Glob
	git     *gitignore.GitIgnore
}

func newPathFilter(rootDir string, include, ignore []string, useGitIgnore bool) (*pathFilter, error) {
	f := &pathFilter{}
	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		f.include = append(f.include, g)
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		f.ignore = append(f.ignore, g)
	}
	if useGitIgnore {
		gi, err := gitignore.CompileIgnoreFile(filepath.Join(rootDir, ".gitignore"))
		if err == nil {
			f.git = gi
		} else if !os.IsNotExist(err) {
			log.Printf("warning: cannot read .gitignore: %v", err)
		}
	}
	return f, nil
}

// match reports whether a slash-separated relative path should be
// indexed. Ignore patterns win over include patterns.
func (f *pathFilter) match(relPath string) bool {
	for _, g := range f.ignore {
		if g.Match(relPath) {
			return false
		}
	}
	if f.git != nil && f.git.MatchesPath(relPath) {
		return false
	}
	for _, g := range f.include {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// discoverFiles walks the workspace and returns the files to index.
// Binary files and files with no supported language are skipped.
// Unreadable directories are logged and skipped, never fatal.
func discoverFiles(rootDir string, filter *pathFilter) ([]ProjectFile, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootDir, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", absRoot)
	}

	var files []ProjectFile
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("warning: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			// Prune ignored directory trees early; .git and
			// node_modules can be enormous.
			if dirIgnored(filter, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !filter.match(rel) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			log.Printf("warning: skipping %s: %v", path, statErr)
			return nil
		}
		// Empty files have nothing to index.
		if fi.Size() == 0 {
			return nil
		}

		head, headErr := readHead(path)
		if headErr != nil {
			log.Printf("warning: skipping unreadable %s: %v", path, headErr)
			return nil
		}
		if isBinary(head) {
			return nil
		}
		lang, ok := parser.Detect(path, head)
		if !ok {
			return nil
		}

		files = append(files, ProjectFile{
			ID:       uuid.NewString(),
			Path:     path,
			RelPath:  rel,
			Language: lang,
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
			Status:   FilePending,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

// dirIgnored matches a directory against ignore patterns, trying both
// the bare path and the trailing-slash form so "vendor/**" prunes the
// vendor directory itself.
func dirIgnored(filter *pathFilter, rel string) bool {
	probe := rel + "/"
	for _, g := range filter.ignore {
		if g.Match(rel) || g.Match(probe) || g.Match(probe+"x") {
			return true
		}
	}
	if filter.git != nil && filter.git.MatchesPath(rel) {
		return true
	}
	return false
}

// readHead reads the first 512 bytes of a file for binary sniffing and
// language detection.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

// isBinary reports whether content looks binary. A null byte in the
// first 512 bytes is the signal, same heuristic git uses.
func isBinary(head []byte) bool {
	return bytes.IndexByte(head, 0) >= 0
}

// statFile builds a ProjectFile for one known path, used by the
// incremental watch path where a full walk is wasteful.
func statFile(rootDir, path string) (ProjectFile, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return ProjectFile{}, err
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, path)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ProjectFile{}, fmt.Errorf("path %s is outside root %s", path, absRoot)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return ProjectFile{}, err
	}
	head, err := readHead(abs)
	if err != nil {
		return ProjectFile{}, err
	}
	if isBinary(head) {
		return ProjectFile{}, fmt.Errorf("%s is binary", path)
	}
	lang, ok := parser.Detect(abs, head)
	if !ok {
		return ProjectFile{}, fmt.Errorf("%s has no supported language", path)
	}

	return ProjectFile{
		ID:       uuid.NewString(),
		Path:     abs,
		RelPath:  filepath.ToSlash(rel),
		Language: lang,
		Size:     fi.Size(),
		ModTime:  fi.ModTime(),
		Status:   FilePending,
	}, nil
}
