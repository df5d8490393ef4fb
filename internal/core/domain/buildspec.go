package domain

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// BuildKind names a build backend variant.
type BuildKind string

const (
	// BuildDefault copies plain source files into the install layout.
	BuildDefault BuildKind = "default"
	// BuildNativeModule compiles C sources into a loadable shared object.
	BuildNativeModule BuildKind = "native-module"
	// BuildParserGrammar compiles a tree-sitter grammar.
	BuildParserGrammar BuildKind = "parser-grammar"
	// BuildExternalCompat delegates the build to a legacy tool.
	BuildExternalCompat BuildKind = "external-compat"
	// BuildCustomScript runs package supplied build steps.
	BuildCustomScript BuildKind = "custom-script"
)

// BuildKinds lists every known backend variant.
func BuildKinds() []BuildKind {
	return []BuildKind{BuildDefault, BuildNativeModule, BuildParserGrammar, BuildExternalCompat, BuildCustomScript}
}

// BuildSpec is the closed set of build descriptions. Only the types in this
// file implement it.
type BuildSpec interface {
	Kind() BuildKind
	isBuildSpec()
}

// DefaultSpec installs source files without compiling anything.
// When Modules is empty, Lua files are discovered under src/ and lua/.
type DefaultSpec struct {
	Modules         map[string]string `json:"modules,omitempty"`
	Bin             map[string]string `json:"bin,omitempty"`
	Conf            map[string]string `json:"conf,omitempty"`
	CopyDirectories []string          `json:"copy_directories,omitempty"`
}

// NativeModule is one shared object built from C sources.
type NativeModule struct {
	Name      string   `json:"name"`
	Sources   []string `json:"sources"`
	Defines   []string `json:"defines,omitempty"`
	Incdirs   []string `json:"incdirs,omitempty"`
	Libdirs   []string `json:"libdirs,omitempty"`
	Libraries []string `json:"libraries,omitempty"`
}

// NativeModuleSpec compiles C modules against the runtime headers and the
// listed external libraries.
type NativeModuleSpec struct {
	Modules  []NativeModule `json:"modules"`
	External []string       `json:"external,omitempty"`
	Lua      DefaultSpec    `json:"lua,omitzero"`
}

// ParserGrammarSpec builds a tree-sitter parser and its queries.
type ParserGrammarSpec struct {
	Language string `json:"language"`
	Module   string `json:"module,omitempty"`
	Source   string `json:"source,omitempty"`
	Queries  string `json:"queries,omitempty"`
	Generate bool   `json:"generate,omitempty"`
}

// ExternalCompatSpec hands the build to a legacy tool.
type ExternalCompatSpec struct {
	Tool     string   `json:"tool,omitempty"`
	Rockspec string   `json:"rockspec,omitempty"`
	Args     []string `json:"args,omitempty"`
}

// ScriptStep is one command of a custom build.
type ScriptStep struct {
	Run []string          `json:"run"`
	Dir string            `json:"dir,omitempty"`
	Env map[string]string `json:"env,omitempty"`
}

// CustomScriptSpec runs ordered commands inside the source directory.
type CustomScriptSpec struct {
	Steps []ScriptStep `json:"steps"`
	Tools []string     `json:"tools,omitempty"`
}

func (*DefaultSpec) Kind() BuildKind        { return BuildDefault }
func (*NativeModuleSpec) Kind() BuildKind   { return BuildNativeModule }
func (*ParserGrammarSpec) Kind() BuildKind  { return BuildParserGrammar }
func (*ExternalCompatSpec) Kind() BuildKind { return BuildExternalCompat }
func (*CustomScriptSpec) Kind() BuildKind   { return BuildCustomScript }

func (*DefaultSpec) isBuildSpec()        {}
func (*NativeModuleSpec) isBuildSpec()   {}
func (*ParserGrammarSpec) isBuildSpec()  {}
func (*ExternalCompatSpec) isBuildSpec() {}
func (*CustomScriptSpec) isBuildSpec()   {}

// NewBuildSpec returns an empty spec of the given kind.
func NewBuildSpec(kind BuildKind) (BuildSpec, error) {
	switch kind {
	case "", BuildDefault:
		return &DefaultSpec{}, nil
	case BuildNativeModule:
		return &NativeModuleSpec{}, nil
	case BuildParserGrammar:
		return &ParserGrammarSpec{}, nil
	case BuildExternalCompat:
		return &ExternalCompatSpec{}, nil
	case BuildCustomScript:
		return &CustomScriptSpec{}, nil
	default:
		return nil, zerr.With(zerr.Wrap(ErrUnknownBuildKind, string(kind)), "kind", string(kind))
	}
}

// MarshalBuildSpec encodes spec as a JSON object with a "type" field.
func MarshalBuildSpec(spec BuildSpec) ([]byte, error) {
	if spec == nil {
		spec = &DefaultSpec{}
	}
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode build spec")
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, zerr.Wrap(err, "failed to encode build spec")
	}
	kind, _ := json.Marshal(spec.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}

// UnmarshalBuildSpec decodes a JSON object produced by MarshalBuildSpec.
// A missing "type" selects the default backend.
func UnmarshalBuildSpec(data []byte) (BuildSpec, error) {
	var head struct {
		Type BuildKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, zerr.Wrap(err, "failed to decode build spec")
	}
	spec, err := NewBuildSpec(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to decode build spec"), "kind", string(head.Type))
	}
	return spec, nil
}

// BuildEnvelope carries a BuildSpec through JSON documents.
type BuildEnvelope struct {
	Spec BuildSpec
}

// MarshalJSON implements json.Marshaler.
func (e BuildEnvelope) MarshalJSON() ([]byte, error) {
	return MarshalBuildSpec(e.Spec)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *BuildEnvelope) UnmarshalJSON(data []byte) error {
	spec, err := UnmarshalBuildSpec(data)
	if err != nil {
		return err
	}
	e.Spec = spec
	return nil
}

// BuildSpecFromMap converts a decoded document fragment, as produced by the
// TOML and YAML decoders, into a BuildSpec.
func BuildSpecFromMap(m map[string]any) (BuildSpec, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to convert build spec")
	}
	return UnmarshalBuildSpec(data)
}

// SameBuildSpec reports whether a and b encode to the same document.
func SameBuildSpec(a, b BuildSpec) bool {
	x, errX := MarshalBuildSpec(a)
	y, errY := MarshalBuildSpec(b)
	return errX == nil && errY == nil && string(x) == string(y)
}
