package instance

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"brimstone/asset"
	"brimstone/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	inst := New("Sigil")
	assert.Equal(t, "Sigil", inst.Metadata.Name)
	assert.Equal(t, "saves/Sigil", inst.GameData.SaveDir)
	assert.Empty(t, inst.GameData.IWADs)
	assert.Empty(t, inst.GameData.Mods)
	assert.Zero(t, inst.Metadata.Playtime)
	assert.False(t, inst.Played())
	require.NoError(t, inst.Validate())
}

func TestValidate(t *testing.T) {
	for _, name := range []string{"", "a/b", `a\b`, "..", "."} {
		assert.Error(t, New(name).Validate(), "name %q", name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	played := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inst := New("x").AddRef(asset.Mod, asset.New("/a.pk3"))
	inst.Metadata.LastPlayed = &played
	inst.GameData.AdditionalParams = []string{"-fast"}

	c := inst.Clone()
	c.GameData.Mods[0].Enabled = false
	c.GameData.AdditionalParams[0] = "-nomonsters"
	*c.Metadata.LastPlayed = played.Add(time.Hour)

	assert.True(t, inst.GameData.Mods[0].Enabled)
	assert.Equal(t, "-fast", inst.GameData.AdditionalParams[0])
	assert.True(t, inst.Metadata.LastPlayed.Equal(played))
}

func TestRefEditing(t *testing.T) {
	inst := New("x").
		AddRef(asset.Mod, asset.New("/a.pk3")).
		AddRef(asset.Mod, asset.New("/b.pk3")).
		AddRef(asset.IWAD, asset.New("/doom2.wad"))

	toggled, err := inst.ToggleRef(asset.Mod, 1)
	require.NoError(t, err)
	assert.False(t, toggled.GameData.Mods[1].Enabled)
	assert.True(t, inst.GameData.Mods[1].Enabled)

	removed, err := toggled.RemoveRef(asset.Mod, 0)
	require.NoError(t, err)
	assert.Equal(t, []asset.Ref{{Path: "/b.pk3"}}, removed.GameData.Mods)
	assert.Len(t, removed.GameData.IWADs, 1)

	_, err = inst.ToggleRef(asset.IWAD, 3)
	assert.Error(t, err)
	_, err = inst.RemoveRef(asset.Mod, -1)
	assert.Error(t, err)
}

func TestRecordSessionAccumulates(t *testing.T) {
	inst := New("x")
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	inst.Metadata.RecordSession(start, 30*time.Minute)
	inst.Metadata.RecordSession(start.Add(time.Hour), 15*time.Minute)

	assert.Equal(t, 45*time.Minute, inst.Metadata.Playtime)
	require.NotNil(t, inst.Metadata.LastSessionDuration)
	assert.Equal(t, 15*time.Minute, *inst.Metadata.LastSessionDuration)
	assert.True(t, inst.Metadata.LastPlayed.Equal(start.Add(time.Hour)))
	assert.True(t, inst.Played())

	cleared := inst.WithoutPlayHistory()
	assert.Zero(t, cleared.Metadata.Playtime)
	assert.Nil(t, cleared.Metadata.LastPlayed)
	assert.Nil(t, cleared.Metadata.LastSessionDuration)
	assert.Equal(t, 45*time.Minute, inst.Metadata.Playtime)
}

func TestMarshalRoundTrip(t *testing.T) {
	played := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	last := 20 * time.Minute
	inst := New("Eviternity").
		AddRef(asset.IWAD, asset.New("iwads/doom2.wad")).
		AddRef(asset.Mod, asset.Ref{Path: "mods/eviternity.wad"})
	inst.Metadata.Playtime = 3 * time.Hour
	inst.Metadata.LastPlayed = &played
	inst.Metadata.LastSessionDuration = &last
	inst.GameData.AdditionalParams = []string{"-skill", "4"}

	data, err := inst.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, inst.Metadata.Name, got.Metadata.Name)
	assert.Equal(t, inst.Metadata.Playtime, got.Metadata.Playtime)
	require.NotNil(t, got.Metadata.LastPlayed)
	assert.True(t, played.Equal(*got.Metadata.LastPlayed))
	require.NotNil(t, got.Metadata.LastSessionDuration)
	assert.Equal(t, last, *got.Metadata.LastSessionDuration)
	assert.Equal(t, inst.GameData, got.GameData)
}

func TestMarshalWritesNativeDatetime(t *testing.T) {
	inst := New("Sunlust")
	inst.Metadata.RecordSession(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Minute)

	data, err := inst.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "last_played = 2026-01-02T03:04:05Z")
	assert.NotContains(t, string(data), "'2026-01-02T03:04:05Z'")

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.NotNil(t, got.Metadata.LastPlayed)
	assert.True(t, got.Metadata.LastPlayed.Equal(*inst.Metadata.LastPlayed))
	assert.Equal(t, time.Minute, got.Metadata.Playtime)
}

func TestMarshalRoundTripSubsecond(t *testing.T) {
	inst := New("Ancient Aliens")
	started := time.Now()
	inst.Metadata.RecordSession(started, 1500*time.Millisecond)

	data, err := inst.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.NotNil(t, got.Metadata.LastPlayed)
	assert.True(t, got.Metadata.LastPlayed.Equal(started))
	require.NotNil(t, got.Metadata.LastSessionDuration)
	assert.Equal(t, 1500*time.Millisecond, *got.Metadata.LastSessionDuration)
}

func TestUnmarshalUnplayed(t *testing.T) {
	data, err := New("fresh").Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Nil(t, got.Metadata.LastPlayed)
	assert.Nil(t, got.Metadata.LastSessionDuration)
	assert.NotNil(t, got.GameData.Mods)
}

func TestUnmarshalMalformed(t *testing.T) {
	_, err := Unmarshal([]byte("metadata = [[[ nope"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFullCommand(t *testing.T) {
	root := t.TempDir()
	s := store.New(root)

	inst := New("Plutonia").
		AddRef(asset.Mod, asset.New("mods/a.pk3")).
		AddRef(asset.Mod, asset.Ref{Path: "mods/disabled.pk3"}).
		AddRef(asset.IWAD, asset.New("iwads/doom2.wad")).
		AddRef(asset.Mod, asset.New("mods/b.pk3"))
	inst.GameData.AdditionalParams = []string{"+map", "MAP01"}

	got, err := inst.FullCommand(s, "gzdoom")
	require.NoError(t, err)

	want := "gzdoom" +
		` -iwad "` + filepath.Join(root, "iwads", "doom2.wad") + `"` +
		` -file "` + filepath.Join(root, "mods", "a.pk3") + `"` +
		` -file "` + filepath.Join(root, "mods", "b.pk3") + `"` +
		` -savedir "` + filepath.Join(root, "saves", "Plutonia") + `"` +
		` +map MAP01`
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "disabled.pk3")
}

func TestFullCommandEmpty(t *testing.T) {
	root := t.TempDir()
	got, err := New("bare").FullCommand(store.New(root), "gzdoom")
	require.NoError(t, err)
	assert.Equal(t, `gzdoom -savedir "`+filepath.Join(root, "saves", "bare")+`"`, got)
}

func TestFullCommandNoRoot(t *testing.T) {
	_, err := New("x").FullCommand(store.New(""), "gzdoom")
	assert.ErrorIs(t, err, store.ErrNoRoot)
}

func TestRunRecordsPlaytime(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	inst := New("x")
	var out strings.Builder

	res, err := inst.Run("echo hello", LaunchOptions{Stdout: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.NoError(t, res.Err)
	assert.Equal(t, "hello\n", out.String())
	assert.True(t, inst.Played())
	assert.Equal(t, res.Duration, inst.Metadata.Playtime)
}

func TestRunGameFailureStillRecords(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	inst := New("x")

	res, err := inst.Run("exit 3", LaunchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Error(t, res.Err)
	assert.True(t, inst.Played())
}

func TestLaunchPoll(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	inst := New("x")

	s, err := inst.Launch("true", LaunchOptions{})
	require.NoError(t, err)
	assert.False(t, inst.Played(), "history changes only after Wait")

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish")
	}
	first := s.Wait()
	second := s.Wait()
	assert.Equal(t, first, second)
	assert.Equal(t, first.Duration, inst.Metadata.Playtime, "recorded once")
}

func TestLaunchWithoutShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	t.Setenv("PATH", t.TempDir())
	inst := New("x")

	_, err := inst.Launch("true", LaunchOptions{})
	assert.ErrorIs(t, err, ErrLaunch)
	assert.False(t, inst.Played())
}
