// Cloak control panel: toggle, presets, recording, background and snapshots
package gui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"invisible-cloak/internal/session"
)

type ControlPanel struct {
	ctrl   session.Controller
	logger logrus.FieldLogger

	container *fyne.Container

	cloakButton     *widget.Button
	colorLabel      *widget.Label
	presetButtons   map[string]*widget.Button
	recordButton    *widget.Button
	recaptureButton *widget.Button
	snapshotButton  *widget.Button
	statusLabel     *widget.Label

	recording bool

	onError   func(error)
	onMessage func(string)
	onPreset  func(string)
}

func NewControlPanel(ctrl session.Controller, presets []string, logger logrus.FieldLogger) *ControlPanel {
	panel := &ControlPanel{
		ctrl:          ctrl,
		logger:        logger,
		presetButtons: make(map[string]*widget.Button, len(presets)),
	}

	panel.initializeUI(presets)
	panel.Refresh(ctrl.Status())
	return panel
}

func (cp *ControlPanel) initializeUI(presets []string) {
	cp.cloakButton = widget.NewButton("Cloak: ON", cp.toggleCloak)
	cp.cloakButton.Importance = widget.HighImportance

	cp.colorLabel = widget.NewLabel("")

	presetRow := container.NewGridWithColumns(max(1, min(len(presets), 4)))
	for _, name := range presets {
		button := widget.NewButton(displayName(name), func() { cp.selectPreset(name) })
		cp.presetButtons[name] = button
		presetRow.Add(button)
	}

	cp.recordButton = widget.NewButtonWithIcon("Start Recording", theme.MediaRecordIcon(), cp.toggleRecording)
	cp.recaptureButton = widget.NewButtonWithIcon("Recapture Background", theme.ViewRefreshIcon(), cp.recapture)
	cp.snapshotButton = widget.NewButtonWithIcon("Save Snapshot", theme.DocumentSaveIcon(), cp.saveSnapshot)

	cp.statusLabel = widget.NewLabel("")
	cp.statusLabel.TextStyle = fyne.TextStyle{Monospace: true}

	cp.container = container.NewVBox(
		widget.NewCard("Cloak", "", container.NewVBox(cp.cloakButton, cp.colorLabel)),
		widget.NewCard("Colors", "Click the video to pick a color", presetRow),
		widget.NewCard("Session", "", container.NewVBox(cp.recordButton, cp.recaptureButton, cp.snapshotButton)),
		widget.NewSeparator(),
		cp.statusLabel,
	)
}

// SetCallbacks sets the error, message and preset selection callbacks.
func (cp *ControlPanel) SetCallbacks(onError func(error), onMessage func(string), onPreset func(string)) {
	cp.onError = onError
	cp.onMessage = onMessage
	cp.onPreset = onPreset
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

// Refresh mirrors status into the widgets. Call it on the UI goroutine.
func (cp *ControlPanel) Refresh(status session.Status) {
	if status.Enabled {
		cp.cloakButton.SetText("Cloak: ON")
		cp.cloakButton.Importance = widget.HighImportance
	} else {
		cp.cloakButton.SetText("Cloak: OFF")
		cp.cloakButton.Importance = widget.MediumImportance
	}
	cp.cloakButton.Refresh()

	cp.colorLabel.SetText(colorText(status))

	for name, button := range cp.presetButtons {
		if name == status.Preset {
			button.Importance = widget.HighImportance
		} else {
			button.Importance = widget.MediumImportance
		}
		button.Refresh()
	}

	cp.recording = status.Recording.Active
	if cp.recording {
		cp.recordButton.SetText("Stop Recording")
		cp.recordButton.SetIcon(theme.MediaStopIcon())
	} else {
		cp.recordButton.SetText("Start Recording")
		cp.recordButton.SetIcon(theme.MediaRecordIcon())
	}

	if status.RecapturePending {
		cp.recaptureButton.Disable()
	} else {
		cp.recaptureButton.Enable()
	}

	cp.statusLabel.SetText(status.Metrics.Summary())
}

func (cp *ControlPanel) toggleCloak() {
	enabled := cp.ctrl.Toggle()
	cp.logger.WithField("enabled", enabled).Debug("Cloak toggled from panel")
	cp.Refresh(cp.ctrl.Status())
}

func (cp *ControlPanel) selectPreset(name string) {
	if _, err := cp.ctrl.SelectPreset(name); err != nil {
		cp.notifyError(err)
		return
	}
	if cp.onPreset != nil {
		cp.onPreset(name)
	}
	cp.Refresh(cp.ctrl.Status())
}

func (cp *ControlPanel) toggleRecording() {
	if cp.recording {
		status, err := cp.ctrl.StopRecording()
		if err != nil {
			cp.notifyError(err)
		} else {
			cp.notifyMessage(fmt.Sprintf("Recording saved: %s (%d frames)", status.Path, status.Frames))
		}
	} else {
		path, err := cp.ctrl.StartRecording()
		if err != nil {
			cp.notifyError(err)
		} else {
			cp.notifyMessage("Recording to " + path)
		}
	}
	cp.Refresh(cp.ctrl.Status())
}

func (cp *ControlPanel) recapture() {
	delay := cp.ctrl.RecaptureBackground()
	cp.notifyMessage(fmt.Sprintf("Step out of frame: background capture in %s", delay))
	cp.Refresh(cp.ctrl.Status())
}

func (cp *ControlPanel) saveSnapshot() {
	path, err := cp.ctrl.SaveSnapshot()
	if err != nil {
		cp.notifyError(err)
		return
	}
	cp.notifyMessage("Snapshot saved: " + path)
}

func (cp *ControlPanel) notifyError(err error) {
	cp.logger.WithError(err).Warn("Control panel action failed")
	if cp.onError != nil {
		cp.onError(err)
	}
}

func (cp *ControlPanel) notifyMessage(message string) {
	if cp.onMessage != nil {
		cp.onMessage(message)
	}
}

func colorText(status session.Status) string {
	name := displayName(status.Preset)
	if status.Preset == session.CustomPreset {
		name = "Picked"
	}
	return fmt.Sprintf("Color: %s  HSV %v - %v", name, status.Lower, status.Upper)
}

func displayName(preset string) string {
	if preset == "" {
		return preset
	}
	return strings.ToUpper(preset[:1]) + preset[1:]
}
