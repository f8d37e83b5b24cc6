package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oscwc/internal/store"
)

func TestInitRoundtrip(t *testing.T) {
	dir := t.TempDir()
	layout := store.DefaultLayout()

	require.NoError(t, store.Init(dir, layout, "openSUSE:Tools", "https://api.opensuse.org"))

	name, err := store.ReadProjectName(dir, layout)
	require.NoError(t, err)
	require.Equal(t, "openSUSE:Tools", name)

	apiurl, err := store.ReadAPIURL(dir, layout)
	require.NoError(t, err)
	require.Equal(t, "https://api.opensuse.org", apiurl)

	raw, err := os.ReadFile(layout.ManifestPath(dir))
	require.NoError(t, err)
	require.Equal(t, "<packages/>\n", string(raw))

	info, err := os.Stat(layout.DataDir(dir))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	manifest, err := store.ReadManifest(dir, layout)
	require.NoError(t, err)
	require.Empty(t, manifest.Names())

	require.NoError(t, store.Consistent(dir, layout))
}

func TestCheckMissingManifest(t *testing.T) {
	dir := t.TempDir()
	layout := store.DefaultLayout()
	require.NoError(t, store.Init(dir, layout, "P", "https://example.com"))
	require.NoError(t, os.Remove(layout.ManifestPath(dir)))

	missing, raw, err := store.Check(dir, layout)
	require.NoError(t, err)
	require.Nil(t, raw)
	require.Contains(t, missing, "_packages")

	err = store.Consistent(dir, layout)
	require.Error(t, err)

	var wcErr *store.WCInconsistentError
	require.ErrorAs(t, err, &wcErr)
	require.Contains(t, wcErr.Missing, "_packages")
}

func TestCheckCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	layout := store.DefaultLayout()
	require.NoError(t, store.Init(dir, layout, "P", "https://example.com"))
	require.NoError(t, os.WriteFile(layout.ManifestPath(dir), []byte("not xml {{{"), 0o600))

	missing, raw, err := store.Check(dir, layout)
	require.NoError(t, err)
	require.Empty(t, missing)
	require.Equal(t, []byte("not xml {{{"), raw)

	err = store.Consistent(dir, layout)
	require.Error(t, err)

	var wcErr *store.WCInconsistentError
	require.ErrorAs(t, err, &wcErr)
	require.Equal(t, []byte("not xml {{{"), wcErr.RawXML)
}

func TestManifestRoundtrip(t *testing.T) {
	m := store.Manifest{}
	m.Add("foo", store.StateUnchanged)
	m.Add("bar", store.StateAdded)
	m.Add("abc", store.StateDeleted)

	raw := store.FormatManifest(m)

	parsed, err := store.ParseManifest(raw)
	require.NoError(t, err)
	require.Equal(t, m.Names(), parsed.Names())

	for _, name := range m.Names() {
		want, _ := m.Find(name)
		got, ok := parsed.Find(name)
		require.True(t, ok)
		require.Equal(t, want.State, got.State)
	}
}

func TestManifestMergeAndRemove(t *testing.T) {
	m := store.Manifest{}
	m.Add("foo", store.StateAdded)
	m.Add("bar", store.StateUnchanged)

	unchanged := store.StateUnchanged
	m.Merge(map[string]*store.EntryState{
		"foo": &unchanged,
		"bar": nil,
	})

	require.Equal(t, []string{"foo"}, m.Names())

	entry, ok := m.Find("foo")
	require.True(t, ok)
	require.Equal(t, store.StateUnchanged, entry.State)
}

func TestPackageDataDir(t *testing.T) {
	layout := store.DefaultLayout()
	got := layout.PackageDataDir("/wc", "mypkg")
	require.Equal(t, filepath.Join("/wc", ".osc", "data", "mypkg"), got)
}
