package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/termrender"
	"github.com/Mr-Dark-debug/vantage/internal/tui"
)

const viewDoc = `{
  "points": [
    {"uuid": "p1", "position": [0, 0, 0], "frames": [1]},
    {"uuid": "p2", "position": [0, 2, 0], "frames": [2]}
  ],
  "lines": [{"uuid": "l1", "end_a": {"ref": "p1"}, "end_b": {"ref": "p2"}}]
}`

func newHub(t *testing.T, seed core.Seed, opts ...hub.Option) *hub.Hub {
	t.Helper()
	doc, err := scene.Parse([]byte(viewDoc))
	require.NoError(t, err)
	opts = append(opts, hub.WithSeed(seed))
	h, err := hub.New(doc, termrender.New(40, 12), tui.NewScheduler(time.Millisecond), opts...)
	require.NoError(t, err)
	t.Cleanup(h.Dispose)
	return h
}

func TestSession_RoundTrip(t *testing.T) {
	h := newHub(t, core.DefaultSeed())
	api := h.Core()
	api.Visibility.SetType(scene.KindLines, false)
	api.Visibility.SetFrame(1)
	api.Settings.SetMicroProfile(core.ProfileStrong)
	require.True(t, api.Mode.Focus(selection.FromUUID("p1")))
	api.Lock.Set(true)
	api.Settings.SetFOV(70)

	st := captureSession(h)
	assert.Equal(t, core.ModeMicro, st.Mode)
	assert.Equal(t, "p1", st.Selection.UUID)
	assert.True(t, st.Locked)
	require.NotNil(t, st.Frame)
	assert.Equal(t, 1, *st.Frame)

	seed := restoreSeed(core.DefaultSeed(), st)
	assert.Equal(t, core.ModeMacro, seed.Mode)
	cs, ok := restoreCamera(st)
	require.True(t, ok)

	restored := newHub(t, seed, hub.WithCamera(cs))
	restoreSelection(restored, st)

	rapi := restored.Core()
	assert.Equal(t, core.ModeMicro, rapi.Mode.Get())
	assert.Equal(t, "p1", rapi.Selection.Get().UUID)
	assert.True(t, rapi.Lock.Get())
	assert.False(t, rapi.Visibility.TypeEnabled(scene.KindLines))
	f, ok := rapi.Visibility.Frame()
	assert.True(t, ok)
	assert.Equal(t, 1, f)
	assert.Equal(t, core.ProfileStrong, rapi.Settings.Get().FX.Micro.Profile)
	assert.Equal(t, 70.0, rapi.Settings.Get().Camera.FOV)
	assert.Equal(t, 70.0, rapi.Camera.State().FOV)
}

func TestRestoreSeed_EmptySessionKeepsBase(t *testing.T) {
	base := core.DefaultSeed()
	base.ViewerSettings.Render.Grid = false

	seed := restoreSeed(base, database.SessionState{})
	assert.Equal(t, *base.ViewerSettings, *seed.ViewerSettings)
	assert.Equal(t, base.Filters.Types, seed.Filters.Types)
	assert.Nil(t, seed.ActiveFrame)

	_, ok := restoreCamera(database.SessionState{})
	assert.False(t, ok)
}

func TestRestoreSelection_MissingEntity(t *testing.T) {
	h := newHub(t, core.DefaultSeed())
	restoreSelection(h, database.SessionState{
		Mode:      core.ModeMicro,
		Selection: selection.Selection{UUID: "gone", Kind: scene.KindPoints},
		Locked:    true,
		Camera:    camera.DefaultState(),
	})
	assert.True(t, h.Core().Selection.Get().Empty())
	assert.Equal(t, core.ModeMacro, h.Core().Mode.Get())
	assert.False(t, h.Core().Lock.Get())
}

func TestLoadReload(t *testing.T) {
	dir := t.TempDir()
	v, err := schema.NewDefault()
	require.NoError(t, err)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(viewDoc), 0o644))
	ev := loadReload(good, v)
	require.NoError(t, ev.Err)
	assert.Len(t, ev.Doc.Points, 2)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"points": [{"uuid": ""}]}`), 0o644))
	ev = loadReload(bad, v)
	assert.ErrorContains(t, ev.Err, "schema violation")
	assert.Nil(t, ev.Doc)

	ev = loadReload(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, ev.Err)
}

func TestWatchDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(viewDoc), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reloads, err := watchDocument(ctx, path, nil, 10*time.Millisecond)
	require.NoError(t, err)

	// Sibling files do not trigger a reload.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"points": [{"uuid": "solo"}]}`), 0o644))

	select {
	case ev := <-reloads:
		require.NoError(t, ev.Err)
		require.Len(t, ev.Doc.Points, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
}
