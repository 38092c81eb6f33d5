package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"reify/internal/diag"
	"reify/internal/marker"
	"reify/internal/reify"
	"reify/internal/unit"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)

	key := Digest{1, 2, 3}
	in := &CachePayload{
		Schema: diskCacheSchemaVersion,
		Files: []CachedFile{{
			Path:     "a.rasm",
			Assembly: "method demo/A.f ()V\n  return\nend\n",
			Methods: []CachedMethod{{
				Rewritten: 2,
				Usages:    []string{"T"},
				Abandoned: []reify.AbandonedMarker{{Index: 4, Kind: marker.Is, Argument: marker.Argument{ParameterName: "T", Nullable: true}, Reason: "boom"}},
			}},
		}},
		Usages:      []string{"T"},
		Diagnostics: []diag.Diagnostic{diag.NewError(diag.RfyStrict, diag.At("a.rasm", "demo/A.f", 4), "left")},
	}
	require.NoError(t, c.Put(key, in))

	var out CachePayload
	found, err := c.Get(key, &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in.Files, out.Files)
	require.Equal(t, in.Diagnostics, out.Diagnostics)

	found, err = c.Get(Digest{9}, &out)
	require.NoError(t, err)
	require.False(t, found)

	entries, err := os.ReadDir(filepath.Join(c.Dir(), "runs"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not survive Put")
}

func TestDiskCacheSchemaMismatchIsMiss(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	key := Digest{7}
	require.NoError(t, c.Put(key, &CachePayload{Schema: diskCacheSchemaVersion + 1}))

	var out CachePayload
	found, err := c.Get(key, &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDiskCacheDropAll(t *testing.T) {
	c, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "reify"))
	require.NoError(t, err)
	key := Digest{5}
	require.NoError(t, c.Put(key, &CachePayload{Schema: diskCacheSchemaVersion}))
	require.NoError(t, c.DropAll())

	var out CachePayload
	found, err := c.Get(key, &out)
	require.NoError(t, err)
	require.False(t, found)
	require.DirExists(t, c.Dir())
}

func TestOpenDiskCacheHonoursXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)
	c, err := OpenDiskCache("reify")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "reify"), c.Dir())
}

func TestNilDiskCache(t *testing.T) {
	var c *DiskCache
	require.NoError(t, c.Put(Digest{}, &CachePayload{}))
	found, err := c.Get(Digest{}, &CachePayload{})
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, c.DropAll())
}

func TestCacheKeyCoversInputs(t *testing.T) {
	u := &unit.Unit{Path: "u.toml", Manifest: unit.Manifest{Sources: []string{"a.rasm"}}}
	src := []sourceFile{{path: "a.rasm", data: []byte("method demo/A.f ()V\nend\n")}}

	base, err := cacheKey(u, src, false, false)
	require.NoError(t, err)
	again, err := cacheKey(u, src, false, false)
	require.NoError(t, err)
	require.Equal(t, base, again)

	strict, err := cacheKey(u, src, true, false)
	require.NoError(t, err)
	require.NotEqual(t, base, strict)

	edited := []sourceFile{{path: "a.rasm", data: []byte("method demo/A.g ()V\nend\n")}}
	changed, err := cacheKey(u, edited, false, false)
	require.NoError(t, err)
	require.NotEqual(t, base, changed)

	u.Manifest.AllReified = true
	flagged, err := cacheKey(u, src, false, false)
	require.NoError(t, err)
	require.NotEqual(t, base, flagged)
}
