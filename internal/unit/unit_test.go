package unit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"reify/internal/diag"
	"reify/internal/reify"
	"reify/internal/types"
	"reify/internal/unit"
)

const tomlManifest = `
name = "nested"
sources = ["inner.rasm"]
context = ["T"]

[[scope]]
name = "T"
reified = true
owner = "demo/OuterKt"

[[param]]
name = "V"
reified = true
owner = "demo/InnerKt"
bind = "Array<T>?"

[[param]]
name = "K"
reified = true
bind = "String"

[options]
strict = true
`

const yamlManifest = `
name: nested
sources: [inner.rasm]
context: [T]
scope:
  - name: T
    reified: true
    owner: demo/OuterKt
param:
  - name: V
    reified: true
    owner: demo/InnerKt
    bind: "Array<T>?"
  - name: K
    reified: true
    bind: String
options:
  strict: true
`

func writeUnit(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inner.rasm"), []byte("method f ()V\n  return\nend\n"), 0o600))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFormats(t *testing.T) {
	for _, tc := range []struct{ file, content string }{
		{"unit.toml", tomlManifest},
		{"unit.yaml", yamlManifest},
	} {
		path := writeUnit(t, tc.file, tc.content)
		u, err := unit.Load(path)
		require.NoError(t, err, tc.file)
		require.Equal(t, "nested", u.Manifest.Name)
		require.True(t, u.Manifest.Options.Strict)
		require.Equal(t, []string{filepath.Join(filepath.Dir(path), "inner.rasm")}, u.SourcePaths())
		require.Equal(t, []string{"T"}, u.ContextNames())

		in := types.NewInterner()
		args, err := u.Resolve(in)
		require.NoError(t, err)
		require.Len(t, args, 2)

		tm, err := reify.NewTypeParameterMappings(in, args, u.Manifest.AllReified, nil)
		require.NoError(t, err)
		v, ok := tm.Get("V")
		require.True(t, ok)
		require.NotNil(t, v.ReificationArgument)
		require.Equal(t, "[T?", v.ReificationArgument.String())
		k, _ := tm.Get("K")
		require.Nil(t, k.ReificationArgument)
		require.Equal(t, "Ljava/lang/String;", string(k.AsmType))
	}
}

func TestDecodeValidation(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		content string
		code    diag.Code
	}{
		{"no sources", "u.toml", "[[param]]\nname = \"T\"\nbind = \"Int\"\n", diag.UnitMissingField},
		{"no params", "u.toml", "sources = [\"a.rasm\"]\n", diag.UnitMissingField},
		{"missing bind", "u.toml", "sources = [\"a.rasm\"]\n[[param]]\nname = \"T\"\n", diag.UnitMissingField},
		{"duplicate", "u.toml", "sources = [\"a.rasm\"]\n[[param]]\nname = \"T\"\nbind = \"Int\"\n[[param]]\nname = \"T\"\nbind = \"Int\"\n", diag.UnitDuplicateParam},
		{"unknown context", "u.toml", "sources = [\"a.rasm\"]\ncontext = [\"X\"]\n[[param]]\nname = \"T\"\nbind = \"Int\"\n", diag.UnitUnknownParam},
		{"unknown key", "u.toml", "sources = [\"a.rasm\"]\nbogus = 1\n", diag.UnitUnknownFormat},
		{"unknown yaml key", "u.yml", "sources: [a.rasm]\nbogus: 1\n", diag.UnitUnknownFormat},
		{"extension", "u.json", "{}", diag.UnitUnknownFormat},
	}
	for _, tc := range cases {
		_, err := unit.Decode(tc.path, []byte(tc.content))
		var ue *unit.Error
		require.True(t, errors.As(err, &ue), "%s: %v", tc.name, err)
		require.Equal(t, tc.code, ue.Code, "%s: %v", tc.name, err)
		require.Equal(t, tc.code, ue.Diagnostic().Code)
	}
}

func TestResolveBadType(t *testing.T) {
	u, err := unit.Decode("u.toml", []byte("sources = [\"a.rasm\"]\n[[param]]\nname = \"T\"\nbind = \"Array<\"\n"))
	require.NoError(t, err)
	_, err = u.Resolve(types.NewInterner())
	var ue *unit.Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, diag.UnitBadType, ue.Code)
}

func TestLoadMissingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlManifest), 0o600))
	_, err := unit.Load(path)
	var ue *unit.Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, diag.UnitMissingSource, ue.Code)
	require.ErrorIs(t, err, os.ErrNotExist)
}
