package parser

import (
	"path/filepath"
	"sort"
	"strings"

	enry "github.com/go-enry/go-enry/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies a supported source language.
type Language string

const (
	LangC          Language = "c"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangPHP        Language = "php"
	LangPython     Language = "python"
	LangRuby       Language = "ruby"
	LangRust       Language = "rust"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// grammars maps language tags to their statically linked tree-sitter
// grammars. Adding a language is a single entry here plus its extensions
// below; callers never touch the grammar modules directly.
var grammars = map[Language]*sitter.Language{
	LangC:          sitter.NewLanguage(c.Language()),
	LangGo:         sitter.NewLanguage(golang.Language()),
	LangJava:       sitter.NewLanguage(java.Language()),
	LangJavaScript: sitter.NewLanguage(javascript.Language()),
	LangPHP:        sitter.NewLanguage(php.LanguagePHP()),
	LangPython:     sitter.NewLanguage(python.Language()),
	LangRuby:       sitter.NewLanguage(ruby.Language()),
	LangRust:       sitter.NewLanguage(rust.Language()),
	LangTypeScript: sitter.NewLanguage(typescript.LanguageTypescript()),
	LangTSX:        sitter.NewLanguage(typescript.LanguageTSX()),
}

var extensions = map[string]Language{
	".c":    LangC,
	".h":    LangC,
	".go":   LangGo,
	".java": LangJava,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".php":  LangPHP,
	".py":   LangPython,
	".pyi":  LangPython,
	".rb":   LangRuby,
	".rs":   LangRust,
	".ts":   LangTypeScript,
	".mts":  LangTypeScript,
	".tsx":  LangTSX,
}

// enryNames maps go-enry language names to our tags, for files whose
// extension is ambiguous or missing (e.g. extensionless scripts).
var enryNames = map[string]Language{
	"C":          LangC,
	"Go":         LangGo,
	"Java":       LangJava,
	"JavaScript": LangJavaScript,
	"PHP":        LangPHP,
	"Python":     LangPython,
	"Ruby":       LangRuby,
	"Rust":       LangRust,
	"TypeScript": LangTypeScript,
	"TSX":        LangTSX,
}

// Grammar returns the tree-sitter grammar for a language tag.
func Grammar(lang Language) (*sitter.Language, bool) {
	g, ok := grammars[lang]
	return g, ok
}

// Supported returns the registered language tags in sorted order.
func Supported() []Language {
	langs := make([]Language, 0, len(grammars))
	for lang := range grammars {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Detect maps a file to a supported language, first by extension and then
// by enry content detection. The second return value is false when the
// file's language has no registered grammar; such files fall back to
// whole-file handling downstream.
func Detect(path string, content []byte) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensions[ext]; ok {
		return lang, true
	}

	name := enry.GetLanguage(filepath.Base(path), content)
	if lang, ok := enryNames[name]; ok {
		return lang, true
	}
	return "", false
}
