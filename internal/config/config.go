// Package config loads Vantage settings from a TOML file.
//
// Every field has a default; a file only needs the keys it changes.
// Command-line flags are applied by the binaries after loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/ingest"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
)

// Duration is a time.Duration written as a string ("250ms", "2s").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full Vantage configuration.
type Config struct {
	Viewer ViewerConfig `toml:"viewer"`
	Daemon DaemonConfig `toml:"daemon"`
	Bridge BridgeConfig `toml:"bridge"`
}

// ViewerConfig seeds a new viewer.
type ViewerConfig struct {
	FOV            float64             `toml:"fov"`
	AutoOrbitSpeed float64             `toml:"auto_orbit_speed"`
	FrameRate      int                 `toml:"frame_rate"`
	MicroProfile   string              `toml:"micro_profile"`
	Types          map[string]bool     `toml:"types"`
	Modules        map[string]bool     `toml:"modules"`
	Render         core.RenderSettings `toml:"render"`
	// DBPath is where sessions are saved. Empty disables sessions.
	DBPath string `toml:"db_path"`
}

// DaemonConfig configures the ingestion daemon.
type DaemonConfig struct {
	WatchDir        string   `toml:"watch_dir"`
	DBPath          string   `toml:"db_path"`
	MetricsAddr     string   `toml:"metrics_addr"`
	Debounce        Duration `toml:"debounce"`
	MaxDocumentSize int64    `toml:"max_document_size"`
}

// BridgeConfig configures the debug bridge. An empty Addr disables it.
type BridgeConfig struct {
	Addr    string   `toml:"addr"`
	Timeout Duration `toml:"timeout"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	daemon := ingest.DefaultConfig()
	settings := core.DefaultViewerSettings()
	return Config{
		Viewer: ViewerConfig{
			FOV:            camera.DefaultFOV,
			AutoOrbitSpeed: hub.DefaultAutoOrbitSpeed,
			FrameRate:      30,
			MicroProfile:   core.ProfileNormal,
			Types: map[string]bool{
				string(scene.KindPoints): true,
				string(scene.KindLines):  true,
				string(scene.KindAux):    true,
			},
			Modules: map[string]bool{},
			Render:  settings.Render,
			DBPath:  daemon.DBPath,
		},
		Daemon: DaemonConfig{
			WatchDir:        daemon.WatchDir,
			DBPath:          daemon.DBPath,
			MetricsAddr:     daemon.MetricsAddr,
			Debounce:        Duration{daemon.Debounce},
			MaxDocumentSize: daemon.MaxDocumentSize,
		},
		Bridge: BridgeConfig{
			Timeout: Duration{2 * time.Second},
		},
	}
}

// DefaultPath is ~/.vantage/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".vantage", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("decoding config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate rejects values no component can use.
func (c Config) Validate() error {
	v := c.Viewer
	for name := range v.Types {
		if _, ok := scene.ParseKind(name); !ok {
			return fmt.Errorf("viewer.types: unknown kind %q", name)
		}
	}
	if v.FrameRate <= 0 || v.FrameRate > 240 {
		return fmt.Errorf("viewer.frame_rate: %d out of range 1..240", v.FrameRate)
	}
	switch v.MicroProfile {
	case core.ProfileSubtle, core.ProfileNormal, core.ProfileStrong:
	default:
		return fmt.Errorf("viewer.micro_profile: unknown profile %q", v.MicroProfile)
	}
	if v.AutoOrbitSpeed == 0 {
		return errors.New("viewer.auto_orbit_speed: must be non-zero")
	}
	if c.Daemon.Debounce.Duration < 0 {
		return errors.New("daemon.debounce: must not be negative")
	}
	if c.Bridge.Timeout.Duration <= 0 {
		return errors.New("bridge.timeout: must be positive")
	}
	return nil
}

// Seed builds the initial viewer state. Kinds missing from Types stay
// enabled.
func (v ViewerConfig) Seed() core.Seed {
	seed := core.DefaultSeed()
	for name, on := range v.Types {
		if k, ok := scene.ParseKind(name); ok {
			seed.Filters.Types[k] = on
		}
	}
	for name, on := range v.Modules {
		seed.Filters.AuxModules[name] = on
	}
	seed.ViewerSettings.Camera.FOV = camera.ClampFOV(v.FOV)
	seed.ViewerSettings.FX.Micro.Profile = v.MicroProfile
	seed.ViewerSettings.Render = v.Render
	return seed
}

// FrameInterval is the frame period for FrameRate.
func (v ViewerConfig) FrameInterval() time.Duration {
	if v.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(v.FrameRate)
}

// DisabledTypes lists kinds switched off, sorted.
func (v ViewerConfig) DisabledTypes() []string {
	var out []string
	for name, on := range v.Types {
		if !on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Ingest converts the daemon section for the ingest package.
func (d DaemonConfig) Ingest() ingest.Config {
	return ingest.Config{
		WatchDir:        d.WatchDir,
		DBPath:          d.DBPath,
		MetricsAddr:     d.MetricsAddr,
		Debounce:        d.Debounce.Duration,
		MaxDocumentSize: d.MaxDocumentSize,
	}
}
