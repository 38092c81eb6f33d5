// Package unit loads the manifest of one inlining step: the type parameters
// of the inlined callee with their call-site bindings, the caller's own type
// parameters those bindings may mention, and the assembly files holding the
// inlined bodies.
package unit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"reify/internal/diag"
	"reify/internal/reify"
	"reify/internal/types"
)

// Param declares a type parameter. Bind is only used for callee parameters
// and holds the type expression supplied at the call site.
type Param struct {
	Name    string `toml:"name" yaml:"name"`
	Reified bool   `toml:"reified" yaml:"reified"`
	Owner   string `toml:"owner" yaml:"owner"`
	Bind    string `toml:"bind" yaml:"bind"`
}

type Options struct {
	Strict            bool `toml:"strict" yaml:"strict"`
	UnifiedNullChecks bool `toml:"unified_null_checks" yaml:"unified_null_checks"`
}

// Manifest is the decoded manifest file.
type Manifest struct {
	Name       string   `toml:"name" yaml:"name"`
	Sources    []string `toml:"sources" yaml:"sources"`
	AllReified bool     `toml:"all_reified" yaml:"all_reified"`

	// Context lists the reified parameters declared by the caller itself.
	// Usages of these stay inside the caller.
	Context []string `toml:"context" yaml:"context"`

	Scope   []Param `toml:"scope" yaml:"scope"`
	Params  []Param `toml:"param" yaml:"param"`
	Options Options `toml:"options" yaml:"options"`
}

// Unit is a loaded manifest.
type Unit struct {
	Path     string
	Dir      string
	Manifest Manifest
}

// Error is a manifest problem.
type Error struct {
	Path string
	Code diag.Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts e for a diag.Bag.
func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Code, diag.AtLine(e.Path, 0), e.Err.Error())
}

// Load reads the manifest at path. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Code: diag.IOLoadFileError, Err: err}
	}
	u, err := Decode(path, data)
	if err != nil {
		return nil, err
	}
	for _, src := range u.SourcePaths() {
		if _, err := os.Stat(src); err != nil {
			return nil, &Error{Path: path, Code: diag.UnitMissingSource, Err: fmt.Errorf("source %s: %w", src, err)}
		}
	}
	return u, nil
}

// Decode parses manifest data; path selects the format and anchors
// relative source paths.
func Decode(path string, data []byte) (*Unit, error) {
	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, &Error{Path: path, Code: diag.UnitUnknownFormat, Err: fmt.Errorf("failed to parse TOML: %w", err)}
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, &Error{Path: path, Code: diag.UnitUnknownFormat, Err: fmt.Errorf("unknown key %s", undecoded[0])}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, &Error{Path: path, Code: diag.UnitUnknownFormat, Err: fmt.Errorf("failed to parse YAML: %w", err)}
		}
	default:
		return nil, &Error{Path: path, Code: diag.UnitUnknownFormat, Err: fmt.Errorf("unsupported manifest extension %q", ext)}
	}
	normalize(&m)
	u := &Unit{Path: path, Dir: filepath.Dir(path), Manifest: m}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// normalize brings names to NFC so they compare byte-exactly with the
// marker arguments read from assembly.
func normalize(m *Manifest) {
	for i := range m.Context {
		m.Context[i] = norm.NFC.String(strings.TrimSpace(m.Context[i]))
	}
	for _, list := range [][]Param{m.Scope, m.Params} {
		for i := range list {
			list[i].Name = norm.NFC.String(strings.TrimSpace(list[i].Name))
			list[i].Bind = norm.NFC.String(strings.TrimSpace(list[i].Bind))
		}
	}
}

func (u *Unit) fail(code diag.Code, format string, args ...any) error {
	return &Error{Path: u.Path, Code: code, Err: fmt.Errorf(format, args...)}
}

func (u *Unit) validate() error {
	m := &u.Manifest
	if len(m.Sources) == 0 {
		return u.fail(diag.UnitMissingField, "missing sources")
	}
	if len(m.Params) == 0 {
		return u.fail(diag.UnitMissingField, "missing [[param]] bindings")
	}
	scope := make(map[string]Param, len(m.Scope))
	for i, p := range m.Scope {
		if p.Name == "" {
			return u.fail(diag.UnitMissingField, "scope[%d]: missing name", i)
		}
		if _, dup := scope[p.Name]; dup {
			return u.fail(diag.UnitDuplicateParam, "scope parameter %s declared twice", p.Name)
		}
		scope[p.Name] = p
	}
	seen := make(map[string]struct{}, len(m.Params))
	for i, p := range m.Params {
		if p.Name == "" {
			return u.fail(diag.UnitMissingField, "param[%d]: missing name", i)
		}
		if p.Bind == "" {
			return u.fail(diag.UnitMissingField, "param %s: missing bind", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return u.fail(diag.UnitDuplicateParam, "parameter %s bound twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for _, name := range m.Context {
		p, ok := scope[name]
		if !ok || !p.Reified {
			return u.fail(diag.UnitUnknownParam, "context names %s, which is not a reified scope parameter", name)
		}
	}
	return nil
}

// SourcePaths returns the sources relative to the manifest directory.
func (u *Unit) SourcePaths() []string {
	out := make([]string, len(u.Manifest.Sources))
	for i, src := range u.Manifest.Sources {
		if filepath.IsAbs(src) {
			out[i] = src
		} else {
			out[i] = filepath.Join(u.Dir, filepath.FromSlash(src))
		}
	}
	return out
}

// Resolve interns the declared parameters and parses the bindings.
func (u *Unit) Resolve(in *types.Interner) ([]reify.TypeArgument, error) {
	scope := make(types.Scope, len(u.Manifest.Scope))
	for _, p := range u.Manifest.Scope {
		scope[p.Name] = in.Param(p.Name, p.Reified, p.Owner)
	}
	args := make([]reify.TypeArgument, 0, len(u.Manifest.Params))
	for _, p := range u.Manifest.Params {
		bound, err := types.Parse(in, p.Bind, scope)
		if err != nil {
			return nil, u.fail(diag.UnitBadType, "param %s: %w", p.Name, err)
		}
		args = append(args, reify.TypeArgument{Param: in.Param(p.Name, p.Reified, p.Owner), Type: bound})
	}
	return args, nil
}

// ContextNames returns the caller's own reified parameters.
func (u *Unit) ContextNames() []string {
	return append([]string(nil), u.Manifest.Context...)
}
