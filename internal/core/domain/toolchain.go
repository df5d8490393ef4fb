package domain

import "slices"

// ToolchainRequirements lists what a backend needs from the host before it
// runs. Detection fails before any tool is invoked when something is missing.
type ToolchainRequirements struct {
	Compiler        bool
	RuntimeHeaders  bool
	GrammarCompiler bool
	Libraries       []string
	Tools           []string
}

// IsEmpty reports whether nothing has to be detected.
func (r ToolchainRequirements) IsEmpty() bool {
	return !r.Compiler && !r.RuntimeHeaders && !r.GrammarCompiler && len(r.Libraries) == 0 && len(r.Tools) == 0
}

// Merge returns the union of r and other.
func (r ToolchainRequirements) Merge(other ToolchainRequirements) ToolchainRequirements {
	out := ToolchainRequirements{
		Compiler:        r.Compiler || other.Compiler,
		RuntimeHeaders:  r.RuntimeHeaders || other.RuntimeHeaders,
		GrammarCompiler: r.GrammarCompiler || other.GrammarCompiler,
	}
	for _, l := range slices.Concat(r.Libraries, other.Libraries) {
		if !slices.Contains(out.Libraries, l) {
			out.Libraries = append(out.Libraries, l)
		}
	}
	for _, t := range slices.Concat(r.Tools, other.Tools) {
		if !slices.Contains(out.Tools, t) {
			out.Tools = append(out.Tools, t)
		}
	}
	return out
}

// ExternalLibrary is a native library located on the host.
type ExternalLibrary struct {
	Name   string
	CFlags []string
	Libs   []string
	// Origin is "pkg-config" or "env".
	Origin string
}

// Toolchain is what detection found on the host.
type Toolchain struct {
	Compiler        string
	RuntimeIncludes []string
	GrammarCompiler string
	Libraries       map[string]ExternalLibrary
	Tools           map[string]string
}

// Library returns the detected library with the given name.
func (t *Toolchain) Library(name string) (ExternalLibrary, bool) {
	if t == nil || t.Libraries == nil {
		return ExternalLibrary{}, false
	}
	lib, ok := t.Libraries[name]
	return lib, ok
}

// Tool returns the absolute path of a detected tool.
func (t *Toolchain) Tool(name string) (string, bool) {
	if t == nil || t.Tools == nil {
		return "", false
	}
	path, ok := t.Tools[name]
	return path, ok
}
