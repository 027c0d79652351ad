package crawler

import "time"

// FileRecord describes a file discovered by the crawler. Content is not
// loaded here; the indexer reads it when the file turns out to be new
// or changed.
type FileRecord struct {
	// Path is relative to the crawl root, slash-separated.
	Path string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	Size    int64
	ModTime time.Time
}

// Result is one streamed crawl outcome: a discovered file, or an error
// encountered while walking.
type Result struct {
	File  *FileRecord
	Error error
}

// lockFileNames are dependency lock files, skipped by default. They are
// machine-generated and drown out search results.
var lockFileNames = map[string]bool{
	"Cargo.lock":          true,
	"package-lock.json":   true,
	"yarn.lock":           true,
	"pnpm-lock.yaml":      true,
	"npm-shrinkwrap.json": true,
	"composer.lock":       true,
	"poetry.lock":         true,
	"Pipfile.lock":        true,
	"pdm.lock":            true,
	"Gemfile.lock":        true,
	"mix.lock":            true,
	"go.sum":              true,
	"flake.lock":          true,
	"deno.lock":           true,
	"Package.resolved":    true,
	"pubspec.lock":        true,
	"packages.lock.json":  true,
}

// defaultTextExtensions is the allow-list used when the config does not
// name explicit extensions.
var defaultTextExtensions = map[string]bool{
	// Programming languages
	"rs": true, "py": true, "js": true, "ts": true, "jsx": true, "tsx": true,
	"go": true, "rb": true, "php": true, "java": true, "kt": true, "scala": true,
	"c": true, "cpp": true, "cc": true, "cxx": true, "h": true, "hpp": true,
	"hxx": true, "cs": true, "vb": true, "fs": true, "ml": true, "hs": true,
	"elm": true, "clj": true, "cljs": true, "ex": true, "exs": true, "erl": true,
	"hrl": true, "dart": true, "swift": true, "r": true, "jl": true, "lua": true,
	"pl": true, "pm": true, "tcl": true, "vhdl": true, "v": true, "sv": true,
	"asm": true, "s": true,
	// Web
	"html": true, "htm": true, "css": true, "scss": true, "sass": true,
	"less": true, "vue": true, "svelte": true, "astro": true,
	// Data formats
	"json": true, "yaml": true, "yml": true, "toml": true, "xml": true,
	"csv": true, "tsv": true, "ini": true, "cfg": true, "conf": true,
	"properties": true, "env": true,
	// Documentation
	"md": true, "markdown": true, "rst": true, "txt": true, "tex": true,
	"adoc": true, "asciidoc": true,
	// Scripts and build files
	"sh": true, "bash": true, "zsh": true, "fish": true, "ps1": true,
	"bat": true, "cmd": true, "dockerfile": true, "makefile": true,
	"cmake": true, "gradle": true, "sbt": true, "ninja": true,
	// Misc text
	"log": true, "sql": true, "graphql": true, "gql": true, "proto": true,
	"thrift": true, "avro": true, "vim": true,
}

// extensionlessNames are well-known text files without an extension,
// matched case-insensitively on the base name.
var extensionlessNames = map[string]bool{
	// Documentation
	"readme": true, "license": true, "changelog": true, "authors": true,
	"copying": true, "install": true, "news": true, "history": true,
	"contributors": true, "notice": true, "thanks": true,
	// Build and configuration
	"makefile": true, "dockerfile": true, "rakefile": true, "gemfile": true,
	"procfile": true, "justfile": true, "vagrantfile": true, "guardfile": true,
	// CI/CD
	"jenkinsfile": true, "codeowners": true,
	// Other
	"todo": true, "notes": true,
}
