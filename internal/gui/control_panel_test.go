package gui

import (
	"errors"
	"testing"
	"time"

	fynetest "fyne.io/fyne/v2/test"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invisible-cloak/internal/core"
	"invisible-cloak/internal/metrics"
	"invisible-cloak/internal/recording"
	"invisible-cloak/internal/session"
)

type fakeController struct {
	enabled    bool
	preset     string
	active     core.HSVRange
	recording  bool
	recaptures int
	snapErr    error
}

func newFakeController() *fakeController {
	blue, _ := core.Preset("blue")
	return &fakeController{enabled: true, preset: "blue", active: blue}
}

func (f *fakeController) SetEnabled(enabled bool) { f.enabled = enabled }

func (f *fakeController) Toggle() bool {
	f.enabled = !f.enabled
	return f.enabled
}

func (f *fakeController) SelectPreset(name string) (core.HSVRange, error) {
	r, err := core.Preset(name)
	if err != nil {
		return core.HSVRange{}, session.ErrUnknownPreset
	}
	f.preset, f.active = name, r
	return r, nil
}

func (f *fakeController) SetRange(r core.HSVRange) error {
	f.preset, f.active = session.CustomPreset, r
	return nil
}

func (f *fakeController) PickAt(x, y int) (core.HSVRange, error) {
	return core.HSVRange{}, session.ErrNoFrame
}

func (f *fakeController) StartRecording() (string, error) {
	f.recording = true
	return "cloak-1.avi", nil
}

func (f *fakeController) StopRecording() (recording.Status, error) {
	f.recording = false
	return recording.Status{Path: "cloak-1.avi", Frames: 7}, nil
}

func (f *fakeController) RecaptureBackground() time.Duration {
	f.recaptures++
	return 5 * time.Second
}

func (f *fakeController) SaveSnapshot() (string, error) {
	if f.snapErr != nil {
		return "", f.snapErr
	}
	return "cloak-snap.png", nil
}

func (f *fakeController) SnapshotJPEG() ([]byte, error) {
	return nil, session.ErrNoFrame
}

func (f *fakeController) Status() session.Status {
	return session.Status{
		Enabled:          f.enabled,
		Preset:           f.preset,
		Lower:            f.active.Lower.Ints(),
		Upper:            f.active.Upper.Ints(),
		Presets:          []string{"blue", "green", "red"},
		RecapturePending: f.recaptures > 0,
		Recording:        recording.Status{Active: f.recording},
		Metrics:          metrics.Snapshot{FPS: 20},
	}
}

func newTestPanel(t *testing.T) (*ControlPanel, *fakeController, *[]string, *[]error) {
	t.Helper()
	fynetest.NewTempApp(t)
	logger, _ := test.NewNullLogger()

	ctrl := newFakeController()
	panel := NewControlPanel(ctrl, ctrl.Status().Presets, logger)

	var messages []string
	var errs []error
	panel.SetCallbacks(
		func(err error) { errs = append(errs, err) },
		func(msg string) { messages = append(messages, msg) },
		nil,
	)
	return panel, ctrl, &messages, &errs
}

func TestControlPanel_InitialState(t *testing.T) {
	panel, _, _, _ := newTestPanel(t)

	assert.Equal(t, "Cloak: ON", panel.cloakButton.Text)
	assert.Equal(t, "Color: Blue  HSV [90 50 50] - [130 255 255]", panel.colorLabel.Text)
	assert.Len(t, panel.presetButtons, 3)
	assert.Equal(t, "Green", panel.presetButtons["green"].Text)
	assert.Equal(t, "Start Recording", panel.recordButton.Text)
	assert.Contains(t, panel.statusLabel.Text, "20.0 fps")
}

func TestControlPanel_ToggleCloak(t *testing.T) {
	panel, ctrl, _, _ := newTestPanel(t)

	fynetest.Tap(panel.cloakButton)
	assert.False(t, ctrl.enabled)
	assert.Equal(t, "Cloak: OFF", panel.cloakButton.Text)

	fynetest.Tap(panel.cloakButton)
	assert.True(t, ctrl.enabled)
	assert.Equal(t, "Cloak: ON", panel.cloakButton.Text)
}

func TestControlPanel_SelectPreset(t *testing.T) {
	panel, ctrl, _, _ := newTestPanel(t)

	var selected string
	panel.onPreset = func(name string) { selected = name }

	fynetest.Tap(panel.presetButtons["red"])
	assert.Equal(t, "red", ctrl.preset)
	assert.Equal(t, "red", selected)
	assert.Contains(t, panel.colorLabel.Text, "Red")
	assert.Contains(t, panel.colorLabel.Text, "[170 50 50]")
}

func TestControlPanel_Recording(t *testing.T) {
	panel, ctrl, messages, _ := newTestPanel(t)

	fynetest.Tap(panel.recordButton)
	assert.True(t, ctrl.recording)
	assert.Equal(t, "Stop Recording", panel.recordButton.Text)

	fynetest.Tap(panel.recordButton)
	assert.False(t, ctrl.recording)
	assert.Equal(t, "Start Recording", panel.recordButton.Text)

	require.Len(t, *messages, 2)
	assert.Equal(t, "Recording to cloak-1.avi", (*messages)[0])
	assert.Equal(t, "Recording saved: cloak-1.avi (7 frames)", (*messages)[1])
}

func TestControlPanel_Recapture(t *testing.T) {
	panel, ctrl, messages, _ := newTestPanel(t)

	fynetest.Tap(panel.recaptureButton)
	assert.Equal(t, 1, ctrl.recaptures)
	assert.True(t, panel.recaptureButton.Disabled())
	require.Len(t, *messages, 1)
	assert.Contains(t, (*messages)[0], "5s")
}

func TestControlPanel_SnapshotError(t *testing.T) {
	panel, ctrl, messages, errs := newTestPanel(t)

	ctrl.snapErr = errors.New("disk full")
	fynetest.Tap(panel.snapshotButton)
	require.Len(t, *errs, 1)
	assert.EqualError(t, (*errs)[0], "disk full")

	ctrl.snapErr = nil
	fynetest.Tap(panel.snapshotButton)
	assert.Equal(t, []string{"Snapshot saved: cloak-snap.png"}, *messages)
}

func TestColorText_Custom(t *testing.T) {
	text := colorText(session.Status{Preset: session.CustomPreset, Lower: [3]int{1, 2, 3}, Upper: [3]int{4, 5, 6}})
	assert.Equal(t, "Color: Picked  HSV [1 2 3] - [4 5 6]", text)
}
