package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"brimstone/asset"
	"brimstone/config"
	"brimstone/db"
	"brimstone/instance"
	"brimstone/packager"
	"brimstone/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	catalog, err := db.Open(filepath.Join(root, "brimstone.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	st := store.New(filepath.Join(root, "data"))
	return &env{
		cfg: config.Config{
			DataDir:       st.Root(),
			LaunchCommand: "true",
			KeepOriginals: true,
			UserAgent:     "brimstone/test",
		},
		store:    st,
		catalog:  catalog,
		packager: packager.New(st, nil),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseSortMode(t *testing.T) {
	for in, want := range map[string]sortMode{
		"name":         sortByName,
		"Playtime":     sortByPlaytime,
		" last-played": sortByLastPlayed,
	} {
		got, err := parseSortMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := parseSortMode("size")
	assert.Error(t, err)
}

func TestParseIndex(t *testing.T) {
	idx, err := parseIndex("1")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = parseIndex(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 11, idx)

	for _, bad := range []string{"0", "-1", "two", ""} {
		_, err := parseIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestDefaultPackagePath(t *testing.T) {
	assert.Equal(t, "Going_Down.brimpkg", defaultPackagePath("Going Down"))
	assert.Equal(t, "a_b.brimpkg", defaultPackagePath("a/b"))
}

func TestCreateInstance(t *testing.T) {
	e := newTestEnv(t)

	entry, err := e.createInstance("Eviternity")
	require.NoError(t, err)
	assert.Equal(t, "saves/Eviternity", entry.Instance.GameData.SaveDir)
	assert.DirExists(t, filepath.Join(e.store.Root(), "saves", "Eviternity"))

	got, err := e.catalog.Get("Eviternity")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	_, err = e.createInstance("bad/name")
	assert.Error(t, err)
}

func TestListInstancesOrdering(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now()

	add := func(name string, playtime time.Duration, at time.Time) {
		inst := instance.New(name)
		if playtime > 0 {
			inst.Metadata.RecordSession(at, playtime)
		}
		_, err := e.catalog.Add(inst)
		require.NoError(t, err)
	}
	add("beta", time.Hour, now.Add(-48*time.Hour))
	add("Alpha", 0, time.Time{})
	add("gamma", 10*time.Minute, now.Add(-time.Hour))

	names := func(mode sortMode) []string {
		entries, err := listInstances(e.catalog, mode)
		require.NoError(t, err)
		out := []string{}
		for _, en := range entries {
			out = append(out, en.Name())
		}
		return out
	}

	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names(sortByName))
	assert.Equal(t, []string{"beta", "gamma", "Alpha"}, names(sortByPlaytime))
	assert.Equal(t, []string{"gamma", "beta", "Alpha"}, names(sortByLastPlayed))

	var out bytes.Buffer
	entries, err := listInstances(e.catalog, sortByName)
	require.NoError(t, err)
	total, err := e.catalog.TotalPlaytime()
	require.NoError(t, err)
	assert.Equal(t, 70*time.Minute, total)

	printInstances(&out, entries, total)
	assert.Contains(t, out.String(), "never played")
	assert.Contains(t, out.String(), "1h 00m")
	assert.Contains(t, out.String(), "3 instances, 1h 10m played in total")
}

func TestAddAssetFromPath(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.createInstance("x")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "doom2.wad")
	writeFile(t, src, "IWAD")

	ref, err := e.addAsset("x", asset.IWAD, src, true)
	require.NoError(t, err)
	assert.Equal(t, "iwads/doom2.wad", ref.Path)
	assert.FileExists(t, src, "original kept")
	assert.FileExists(t, filepath.Join(e.store.Root(), "iwads", "doom2.wad"))

	mod := filepath.Join(t.TempDir(), "brutal.pk3")
	writeFile(t, mod, "PK")
	_, err = e.addAsset("x", asset.Mod, mod, false)
	require.NoError(t, err)
	assert.NoFileExists(t, mod, "original moved")

	entry, err := e.catalog.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []asset.Ref{{Path: "iwads/doom2.wad", Enabled: true}}, entry.Instance.GameData.IWADs)
	assert.Equal(t, []asset.Ref{{Path: "mods/brutal.pk3", Enabled: true}}, entry.Instance.GameData.Mods)
}

func TestAddAssetMissingSource(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.createInstance("x")
	require.NoError(t, err)

	_, err = e.addAsset("x", asset.Mod, filepath.Join(t.TempDir(), "nope.wad"), true)
	assert.Error(t, err)

	entry, err := e.catalog.Get("x")
	require.NoError(t, err)
	assert.Empty(t, entry.Instance.GameData.Mods)

	_, err = e.addAsset("missing", asset.Mod, "whatever.wad", true)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAddAssetFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brimstone/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("sigil"))
	}))
	defer server.Close()

	e := newTestEnv(t)
	_, err := e.createInstance("x")
	require.NoError(t, err)

	ref, err := e.addAsset("x", asset.Mod, server.URL+"/files/sigil.wad", true)
	require.NoError(t, err)
	assert.Equal(t, "mods/sigil.wad", ref.Path)

	data, err := os.ReadFile(filepath.Join(e.store.Root(), "mods", "sigil.wad"))
	require.NoError(t, err)
	assert.Equal(t, "sigil", string(data))
	assert.NoFileExists(t, filepath.Join(e.store.Root(), store.DownloadsDir, "sigil.wad"))
}

func TestToggleAndDetachAsset(t *testing.T) {
	e := newTestEnv(t)
	inst := instance.New("x").
		AddRef(asset.Mod, asset.New("mods/a.wad")).
		AddRef(asset.Mod, asset.New("mods/b.wad"))
	_, err := e.catalog.Add(inst)
	require.NoError(t, err)

	ref, err := e.toggleAsset("x", asset.Mod, 1)
	require.NoError(t, err)
	assert.Equal(t, asset.Ref{Path: "mods/b.wad", Enabled: false}, ref)

	_, err = e.toggleAsset("x", asset.Mod, 5)
	assert.Error(t, err)

	removed, err := e.detachAsset("x", asset.Mod, 0)
	require.NoError(t, err)
	assert.Equal(t, "mods/a.wad", removed.Path)

	entry, err := e.catalog.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []asset.Ref{{Path: "mods/b.wad", Enabled: false}}, entry.Instance.GameData.Mods)

	_, err = e.detachAsset("x", asset.IWAD, 0)
	assert.Error(t, err)
}

func TestSetParams(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.createInstance("x")
	require.NoError(t, err)

	require.NoError(t, e.setParams("x", []string{"-warp", "1", "-skill", "4"}))
	entry, err := e.catalog.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"-warp", "1", "-skill", "4"}, entry.Instance.GameData.AdditionalParams)

	require.NoError(t, e.setParams("x", nil))
	entry, err = e.catalog.Get("x")
	require.NoError(t, err)
	assert.Empty(t, entry.Instance.GameData.AdditionalParams)
}

func TestRunInstanceRecordsSession(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	e := newTestEnv(t)
	entry, err := e.createInstance("x")
	require.NoError(t, err)

	res, err := e.runInstance(entry, "exit 2", instance.LaunchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)

	got, err := e.catalog.Get("x")
	require.NoError(t, err)
	assert.True(t, got.Instance.Played(), "failed games still count as played")

	sessions, err := e.catalog.Sessions(got.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].ExitCode)

	var out bytes.Buffer
	printSession(&out, "x", res)
	assert.Contains(t, out.String(), "exit code 2")
}

func TestExportImportThroughCatalog(t *testing.T) {
	src := newTestEnv(t)
	_, err := src.createInstance("Ancient Aliens")
	require.NoError(t, err)
	wad := filepath.Join(t.TempDir(), "aaliens.wad")
	writeFile(t, wad, "aliens")
	_, err = src.addAsset("Ancient Aliens", asset.Mod, wad, true)
	require.NoError(t, err)

	entry, err := src.catalog.Get("Ancient Aliens")
	require.NoError(t, err)
	pkg := filepath.Join(t.TempDir(), defaultPackagePath(entry.Name()))
	_, err = src.packager.Pack(entry.Instance, pkg, packager.ExportOptions{})
	require.NoError(t, err)

	dst := newTestEnv(t)
	imported, res, err := dst.importPackage(pkg)
	require.NoError(t, err)
	assert.Equal(t, "Ancient Aliens", imported.Name())
	assert.Equal(t, []asset.Ref{{Path: "mods/aaliens.wad", Enabled: true}}, imported.Instance.GameData.Mods)
	assert.Empty(t, res.Skipped)

	// a second import keeps the files already present
	_, res, err = dst.importPackage(pkg)
	require.NoError(t, err)
	assert.Contains(t, res.Skipped, "mods/aaliens.wad")

	var out bytes.Buffer
	printImport(&out, imported, res)
	assert.Contains(t, out.String(), "Kept")

	all, err := dst.catalog.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListAssetsWithHash(t *testing.T) {
	e := newTestEnv(t)
	writeFile(t, filepath.Join(e.store.Root(), "mods", "hello.wad"), "hello")

	var out bytes.Buffer
	require.NoError(t, listAssets(&out, e.store, asset.Mod, true))
	assert.Contains(t, out.String(), "mods (1)")
	assert.Contains(t, out.String(), "hello.wad")
	assert.Contains(t, out.String(), "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")

	out.Reset()
	require.NoError(t, listAssets(&out, e.store, asset.IWAD, false))
	assert.Contains(t, out.String(), "iwads (0)")
}

func TestCalculateSHA1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "hello")

	sum, err := calculateSHA1(path)
	require.NoError(t, err)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", sum)

	_, err = calculateSHA1(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
