package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, camera.DefaultFOV, cfg.Viewer.FOV)
	assert.Equal(t, time.Second/30, cfg.Viewer.FrameInterval())
	assert.Empty(t, cfg.Bridge.Addr)
	assert.Equal(t, cfg.Daemon.DBPath, cfg.Viewer.DBPath)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[viewer]
fov = 70.0
frame_rate = 60
micro_profile = "strong"
types = { lines = false }
modules = { grid = false }

[viewer.render]
grid = false
axes = true
labels = true

[daemon]
watch_dir = "/srv/inbox"
debounce = "1s"

[bridge]
addr = "127.0.0.1:7070"
timeout = "500ms"
`))
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.Viewer.FOV)
	assert.Equal(t, time.Second/60, cfg.Viewer.FrameInterval())
	assert.Equal(t, "/srv/inbox", cfg.Daemon.WatchDir)
	assert.Equal(t, time.Second, cfg.Daemon.Debounce.Duration)
	assert.Equal(t, "127.0.0.1:7070", cfg.Bridge.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Bridge.Timeout.Duration)
	assert.Equal(t, []string{"lines"}, cfg.Viewer.DisabledTypes())

	seed := cfg.Viewer.Seed()
	assert.Equal(t, core.ModeMacro, seed.Mode)
	assert.False(t, seed.Filters.TypeEnabled(scene.KindLines))
	assert.True(t, seed.Filters.TypeEnabled(scene.KindPoints))
	assert.False(t, seed.Filters.ModuleEnabled("grid"))
	assert.Equal(t, 70.0, seed.ViewerSettings.Camera.FOV)
	assert.Equal(t, core.ProfileStrong, seed.ViewerSettings.FX.Micro.Profile)
	assert.Equal(t, core.RenderSettings{Labels: true, Grid: false, Axes: true}, seed.ViewerSettings.Render)

	ic := cfg.Daemon.Ingest()
	assert.Equal(t, "/srv/inbox", ic.WatchDir)
	assert.Equal(t, time.Second, ic.Debounce)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "[viewer]\nzoom = 3\n"},
		{"unknown kind", "[viewer]\ntypes = { meshes = true }\n"},
		{"bad profile", "[viewer]\nmicro_profile = \"loud\"\n"},
		{"bad frame rate", "[viewer]\nframe_rate = 0\n"},
		{"zero orbit speed", "[viewer]\nauto_orbit_speed = 0.0\n"},
		{"bad duration", "[daemon]\ndebounce = \"soon\"\n"},
		{"syntax", "[viewer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestSeed_ClampsFOV(t *testing.T) {
	v := DefaultConfig().Viewer
	v.FOV = 500
	assert.Equal(t, camera.MaxFOV, v.Seed().ViewerSettings.Camera.FOV)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "vantage.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bridge]\naddr = \":9000\"\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Bridge.Addr)

	require.NoError(t, os.WriteFile(path, []byte("nonsense = 1\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}

func TestEncode_RoundTrips(t *testing.T) {
	want := DefaultConfig()
	want.Bridge.Addr = "localhost:7000"
	data, err := Encode(want)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
