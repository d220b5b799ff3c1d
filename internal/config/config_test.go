package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invisible-cloak/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloak.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0", cfg.Camera.Device)
	assert.Equal(t, time.Second, cfg.Camera.ReadRetry.Duration)
	assert.Equal(t, 30, cfg.Background.Frames)
	assert.Equal(t, 100*time.Millisecond, cfg.Background.Interval.Duration)
	assert.Equal(t, 5, cfg.Background.Countdown)
	assert.Equal(t, core.DefaultMaskOptions(), cfg.MaskOptions())
	assert.Equal(t, core.PickSpread{Hue: 10, Saturation: 80, Value: 80}, cfg.PickSpread())
	assert.Equal(t, "XVID", cfg.Recording.Codec)
	assert.Equal(t, 20.0, cfg.Recording.FPS)
	assert.Empty(t, cfg.HTTP.Addr)

	state, err := cfg.InitialState()
	require.NoError(t, err)
	assert.True(t, state.Enabled)
	blue, _ := core.Preset("blue")
	assert.Equal(t, blue, state.ActiveRange)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
[camera]
device = "clip.mp4"
read_retry = "250ms"
max_read_failures = 5

[background]
frames = 10
interval = "50ms"
countdown = 0

[mask]
kernel_size = 3

[cloak]
enabled = false
preset = "Yellow"

[recording]
output_dir = "videos"
codec = "MJPG"

[http]
addr = ":8080"

[presets.yellow]
lower = [20, 100, 100]
upper = [30, 255, 255]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", cfg.Camera.Device)
	assert.Equal(t, 250*time.Millisecond, cfg.Camera.ReadRetry.Duration)
	assert.Equal(t, 10, cfg.Background.Frames)
	assert.Equal(t, 50*time.Millisecond, cfg.Background.Interval.Duration)
	assert.Zero(t, cfg.Background.Countdown)
	assert.Equal(t, core.MaskOptions{KernelSize: 3, OpenIterations: 2, DilateIterations: 1}, cfg.MaskOptions())
	assert.Equal(t, "videos", cfg.RecordingOptions().OutputDir)
	assert.Equal(t, 20.0, cfg.RecordingOptions().FPS)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	state, err := cfg.InitialState()
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.Equal(t, [3]int{20, 100, 100}, state.ActiveRange.Lower.Ints())

	opts, err := cfg.SessionOptions()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, 5, opts.MaxReadFailures)
	assert.Equal(t, "yellow", opts.ActivePreset)
	assert.Equal(t, []string{"blue", "green", "red", "yellow"}, core.PresetNames(opts.Presets))
	assert.Equal(t, 10, opts.Background.FrameCount)
}

func TestLoad_PresetOverridesBuiltin(t *testing.T) {
	path := writeConfig(t, `
[presets.RED]
lower = [0, 120, 70]
upper = [10, 255, 255]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	table, err := cfg.PresetTable()
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.False(t, table["red"].WrapsHue())
	assert.Equal(t, [3]int{0, 120, 70}, table["red"].Lower.Ints())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[camera\n", "decode config"},
		{"unknown key", "[camera]\ndevise = \"0\"\n", "unknown keys: camera.devise"},
		{"bad duration", "[camera]\nread_retry = \"soon\"\n", "decode config"},
		{"zero frames", "[background]\nframes = 0\n", "background.frames"},
		{"kernel too large", "[mask]\nkernel_size = 99\n", "mask"},
		{"negative pick", "[pick]\nhue = -1\n", "pick"},
		{"bad codec", "[recording]\ncodec = \"H264X\"\n", "FourCC"},
		{"preset hue", "[presets.x]\nlower = [200, 0, 0]\nupper = [10, 255, 255]\n", "presets.x"},
		{"unknown active preset", "[cloak]\npreset = \"purple\"\n", "cloak.preset"},
		{"empty device", "[camera]\ndevice = \"\"\n", "camera.device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Background.Frames = 0
	cfg.Recording.FPS = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "background.frames")
	assert.Contains(t, err.Error(), "recording.fps")
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration{1500 * time.Millisecond}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
}
