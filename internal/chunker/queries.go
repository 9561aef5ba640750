package chunker

import "github.com/mvp-joe/codectx/internal/parser"

// querySpec pairs a chunk type with the structural query that captures it.
// Every query captures the chunk node as @chunk; @name and @params are
// optional enrichment captures.
type querySpec struct {
	chunkType Type
	pattern   string
}

// languageQueries holds the ordered query set per language. Queries run
// independently; when two types overlap (a method inside a captured
// class), both chunks are emitted. That broadening is intentional: it
// gives retrieval both the enclosing context and the precise span.
var languageQueries = map[parser.Language][]querySpec{
	parser.LangGo: {
		{TypeFunction, `(function_declaration name: (identifier) @name parameters: (parameter_list) @params) @chunk`},
		{TypeMethod, `(method_declaration name: (field_identifier) @name parameters: (parameter_list) @params) @chunk`},
		{TypeStruct, `(type_declaration (type_spec name: (type_identifier) @name type: (struct_type))) @chunk`},
		{TypeInterface, `(type_declaration (type_spec name: (type_identifier) @name type: (interface_type))) @chunk`},
		{TypeImport, `(import_declaration) @chunk`},
	},
	parser.LangPython: {
		{TypeFunction, `(function_definition name: (identifier) @name parameters: (parameters) @params) @chunk`},
		{TypeClass, `(class_definition name: (identifier) @name) @chunk`},
		{TypeImport, `(import_statement) @chunk`},
		{TypeImport, `(import_from_statement) @chunk`},
	},
	parser.LangTypeScript: {
		{TypeFunction, `(function_declaration name: (identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeClass, `(class_declaration name: (type_identifier) @name) @chunk`},
		{TypeMethod, `(method_definition name: (property_identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeInterface, `(interface_declaration name: (type_identifier) @name) @chunk`},
		{TypeEnum, `(enum_declaration name: (identifier) @name) @chunk`},
		{TypeImport, `(import_statement) @chunk`},
	},
	parser.LangTSX: {
		{TypeFunction, `(function_declaration name: (identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeClass, `(class_declaration name: (type_identifier) @name) @chunk`},
		{TypeMethod, `(method_definition name: (property_identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeInterface, `(interface_declaration name: (type_identifier) @name) @chunk`},
		{TypeEnum, `(enum_declaration name: (identifier) @name) @chunk`},
		{TypeImport, `(import_statement) @chunk`},
	},
	parser.LangJavaScript: {
		{TypeFunction, `(function_declaration name: (identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeClass, `(class_declaration name: (identifier) @name) @chunk`},
		{TypeMethod, `(method_definition name: (property_identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeImport, `(import_statement) @chunk`},
	},
	parser.LangJava: {
		{TypeClass, `(class_declaration name: (identifier) @name) @chunk`},
		{TypeMethod, `(method_declaration name: (identifier) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeInterface, `(interface_declaration name: (identifier) @name) @chunk`},
		{TypeEnum, `(enum_declaration name: (identifier) @name) @chunk`},
		{TypeImport, `(import_declaration) @chunk`},
	},
	parser.LangC: {
		{TypeFunction, `(function_definition declarator: (function_declarator declarator: (identifier) @name)) @chunk`},
		{TypeStruct, `(struct_specifier name: (type_identifier) @name body: (field_declaration_list)) @chunk`},
		{TypeEnum, `(enum_specifier name: (type_identifier) @name body: (enumerator_list)) @chunk`},
		{TypeImport, `(preproc_include) @chunk`},
	},
	parser.LangRuby: {
		{TypeMethod, `(method name: (identifier) @name) @chunk`},
		{TypeClass, `(class name: (constant) @name) @chunk`},
		{TypeNamespace, `(module name: (constant) @name) @chunk`},
	},
	parser.LangRust: {
		{TypeFunction, `(function_item name: (identifier) @name parameters: (parameters) @params) @chunk`},
		{TypeStruct, `(struct_item name: (type_identifier) @name) @chunk`},
		{TypeEnum, `(enum_item name: (type_identifier) @name) @chunk`},
		{TypeInterface, `(trait_item name: (type_identifier) @name) @chunk`},
		{TypeNamespace, `(mod_item name: (identifier) @name) @chunk`},
		{TypeImport, `(use_declaration) @chunk`},
	},
	parser.LangPHP: {
		{TypeFunction, `(function_definition name: (name) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeClass, `(class_declaration name: (name) @name) @chunk`},
		{TypeMethod, `(method_declaration name: (name) @name parameters: (formal_parameters) @params) @chunk`},
		{TypeInterface, `(interface_declaration name: (name) @name) @chunk`},
		{TypeEnum, `(enum_declaration name: (name) @name) @chunk`},
		{TypeNamespace, `(namespace_definition name: (namespace_name) @name) @chunk`},
	},
}
