// Package config loads the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"invisible-cloak/internal/capture"
	"invisible-cloak/internal/core"
	"invisible-cloak/internal/recording"
	"invisible-cloak/internal/session"
)

// Duration accepts Go duration strings such as "100ms" or "1s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Camera     CameraConfig            `toml:"camera"`
	Background BackgroundConfig        `toml:"background"`
	Mask       MaskConfig              `toml:"mask"`
	Pick       PickConfig              `toml:"pick"`
	Cloak      CloakConfig             `toml:"cloak"`
	Recording  RecordingConfig         `toml:"recording"`
	Snapshot   SnapshotConfig          `toml:"snapshot"`
	HTTP       HTTPConfig              `toml:"http"`
	Presets    map[string]PresetConfig `toml:"presets"`
}

type CameraConfig struct {
	// Device is a camera index, a video file path or a capture URL.
	Device          string   `toml:"device"`
	Width           int      `toml:"width"`
	Height          int      `toml:"height"`
	ReadRetry       Duration `toml:"read_retry"`
	MaxReadFailures int      `toml:"max_read_failures"`
}

type BackgroundConfig struct {
	Frames   int      `toml:"frames"`
	Interval Duration `toml:"interval"`
	// Countdown is the number of seconds to step out of frame.
	Countdown int `toml:"countdown"`
	// File, when set, caches the background between runs.
	File           string   `toml:"file"`
	RecaptureDelay Duration `toml:"recapture_delay"`
}

type MaskConfig struct {
	KernelSize       int `toml:"kernel_size"`
	OpenIterations   int `toml:"open_iterations"`
	DilateIterations int `toml:"dilate_iterations"`
}

// PickConfig holds the half widths applied around a clicked color.
type PickConfig struct {
	Hue        int `toml:"hue"`
	Saturation int `toml:"saturation"`
	Value      int `toml:"value"`
}

type CloakConfig struct {
	Enabled bool   `toml:"enabled"`
	Preset  string `toml:"preset"`
}

type RecordingConfig struct {
	OutputDir string  `toml:"output_dir"`
	Codec     string  `toml:"codec"`
	FPS       float64 `toml:"fps"`
}

type SnapshotConfig struct {
	Dir string `toml:"dir"`
}

type HTTPConfig struct {
	// Addr enables the control server when non-empty, e.g. ":8080".
	Addr string `toml:"addr"`
}

// PresetConfig is a color range in OpenCV HSV units (hue 0..179).
type PresetConfig struct {
	Lower [3]int `toml:"lower"`
	Upper [3]int `toml:"upper"`
}

// Default returns the built-in configuration.
func Default() Config {
	mask := core.DefaultMaskOptions()
	background := core.DefaultBackgroundOptions()
	rec := recording.DefaultOptions()

	return Config{
		Camera: CameraConfig{
			Device:    "0",
			ReadRetry: Duration{time.Second},
		},
		Background: BackgroundConfig{
			Frames:         background.FrameCount,
			Interval:       Duration{background.Interval},
			Countdown:      5,
			RecaptureDelay: Duration{5 * time.Second},
		},
		Mask: MaskConfig{
			KernelSize:       mask.KernelSize,
			OpenIterations:   mask.OpenIterations,
			DilateIterations: mask.DilateIterations,
		},
		Pick: PickConfig{
			Hue:        10,
			Saturation: 80,
			Value:      80,
		},
		Cloak: CloakConfig{
			Enabled: true,
			Preset:  core.DefaultPreset,
		},
		Recording: RecordingConfig{
			OutputDir: rec.OutputDir,
			Codec:     rec.Codec,
			FPS:       rec.FPS,
		},
		Snapshot: SnapshotConfig{
			Dir: ".",
		},
	}
}

// Load decodes path over the defaults. An empty path yields the defaults.
// Unknown keys are rejected so typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section and returns all problems found.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Camera.Device) == "" {
		errs = append(errs, errors.New("camera.device must not be empty"))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must not be negative", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.ReadRetry.Duration < 0 {
		errs = append(errs, errors.New("camera.read_retry must not be negative"))
	}
	if c.Camera.MaxReadFailures < 0 {
		errs = append(errs, errors.New("camera.max_read_failures must not be negative"))
	}

	if c.Background.Frames < 1 {
		errs = append(errs, fmt.Errorf("background.frames must be at least 1, got %d", c.Background.Frames))
	}
	if c.Background.Interval.Duration < 0 || c.Background.RecaptureDelay.Duration < 0 {
		errs = append(errs, errors.New("background durations must not be negative"))
	}
	if c.Background.Countdown < 0 {
		errs = append(errs, errors.New("background.countdown must not be negative"))
	}

	if err := c.MaskOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mask: %w", err))
	}
	if err := c.PickSpread().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pick: %w", err))
	}

	if c.Recording.FPS <= 0 {
		errs = append(errs, fmt.Errorf("recording.fps must be positive, got %g", c.Recording.FPS))
	}
	if len(c.Recording.Codec) != 4 {
		errs = append(errs, fmt.Errorf("recording.codec must be a FourCC code, got %q", c.Recording.Codec))
	}

	table, err := c.PresetTable()
	if err != nil {
		errs = append(errs, err)
	} else if _, ok := table[strings.ToLower(c.Cloak.Preset)]; !ok {
		errs = append(errs, fmt.Errorf("cloak.preset %q is not a known preset", c.Cloak.Preset))
	}

	return errors.Join(errs...)
}

// PresetTable merges the configured presets over the built-in ones. Names
// are case-insensitive.
func (c Config) PresetTable() (map[string]core.HSVRange, error) {
	table := core.Presets()
	for name, preset := range c.Presets {
		r, err := preset.Range()
		if err != nil {
			return nil, fmt.Errorf("presets.%s: %w", name, err)
		}
		table[strings.ToLower(name)] = r
	}
	return table, nil
}

// Range converts the preset to a validated HSVRange.
func (p PresetConfig) Range() (core.HSVRange, error) {
	lower, err := core.HSVFromInts(p.Lower[0], p.Lower[1], p.Lower[2])
	if err != nil {
		return core.HSVRange{}, err
	}
	upper, err := core.HSVFromInts(p.Upper[0], p.Upper[1], p.Upper[2])
	if err != nil {
		return core.HSVRange{}, err
	}
	return core.NewHSVRange(lower, upper)
}

// InitialState returns the pipeline state the session starts with.
func (c Config) InitialState() (core.PipelineState, error) {
	table, err := c.PresetTable()
	if err != nil {
		return core.PipelineState{}, err
	}
	r, ok := table[strings.ToLower(c.Cloak.Preset)]
	if !ok {
		return core.PipelineState{}, fmt.Errorf("unknown preset: %s", c.Cloak.Preset)
	}
	return core.PipelineState{Enabled: c.Cloak.Enabled, ActiveRange: r}, nil
}

func (c Config) MaskOptions() core.MaskOptions {
	return core.MaskOptions{
		KernelSize:       c.Mask.KernelSize,
		OpenIterations:   c.Mask.OpenIterations,
		DilateIterations: c.Mask.DilateIterations,
	}
}

func (c Config) PickSpread() core.PickSpread {
	return core.PickSpread{
		Hue:        c.Pick.Hue,
		Saturation: c.Pick.Saturation,
		Value:      c.Pick.Value,
	}
}

func (c Config) BackgroundOptions() core.BackgroundOptions {
	return core.BackgroundOptions{
		FrameCount: c.Background.Frames,
		Interval:   c.Background.Interval.Duration,
	}
}

func (c Config) CaptureOptions() capture.Options {
	return capture.Options{
		Device: c.Camera.Device,
		Width:  c.Camera.Width,
		Height: c.Camera.Height,
	}
}

func (c Config) RecordingOptions() recording.Options {
	return recording.Options{
		OutputDir: c.Recording.OutputDir,
		Codec:     c.Recording.Codec,
		FPS:       c.Recording.FPS,
	}
}

// SessionOptions assembles the processing loop options.
func (c Config) SessionOptions() (session.Options, error) {
	table, err := c.PresetTable()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		RetryDelay:      c.Camera.ReadRetry.Duration,
		MaxReadFailures: c.Camera.MaxReadFailures,
		Background:      c.BackgroundOptions(),
		RecaptureDelay:  c.Background.RecaptureDelay.Duration,
		Spread:          c.PickSpread(),
		Presets:         table,
		ActivePreset:    strings.ToLower(c.Cloak.Preset),
		SnapshotDir:     c.Snapshot.Dir,
	}, nil
}
