package enrich

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Fence tags that name a file rather than a language.
var projectFileLanguages = map[string]string{
	"go.mod":           "go",
	"go.sum":           "go",
	"package.json":     "json",
	"tsconfig.json":    "json",
	"pyproject.toml":   "toml",
	"setup.py":         "python",
	"requirements.txt": "text",
	"cargo.toml":       "toml",
	"cmakelists.txt":   "cmake",
	"pom.xml":          "xml",
	"build.gradle":     "groovy",
	"build.gradle.kts": "kotlin",
	"gemfile":          "ruby",
	"rakefile":         "ruby",
	"makefile":         "make",
	"dockerfile":       "docker",
}

// Extensions and short tags people put on fences.
var extensionLanguages = map[string]string{
	"go":    "go",
	"js":    "javascript",
	"jsx":   "react",
	"ts":    "typescript",
	"tsx":   "tsx",
	"py":    "python",
	"rs":    "rust",
	"rb":    "ruby",
	"cs":    "csharp",
	"fs":    "fsharp",
	"kt":    "kotlin",
	"hs":    "haskell",
	"ml":    "ocaml",
	"ex":    "elixir",
	"exs":   "elixir",
	"erl":   "erlang",
	"sh":    "bash",
	"shell": "bash",
	"zsh":   "bash",
	"yml":   "yaml",
	"md":    "markdown",
	"h":     "c",
	"hpp":   "cpp",
}

// lexerFor resolves a fence language tag to a lexer, accepting language
// names, short extension tags and file names.
func lexerFor(tag string) chroma.Lexer {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil
	}
	if lang, ok := projectFileLanguages[tag]; ok {
		return lexers.Get(lang)
	}
	if lang, ok := extensionLanguages[strings.TrimPrefix(tag, ".")]; ok {
		return lexers.Get(lang)
	}
	if l := lexers.Get(tag); l != nil {
		return l
	}
	if ext := filepath.Ext(tag); ext != "" {
		if lang, ok := extensionLanguages[ext[1:]]; ok {
			return lexers.Get(lang)
		}
		return lexers.Match(tag)
	}
	return nil
}
