// Main window: live video view next to the cloak control panel
package gui

import (
	"context"
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"invisible-cloak/internal/session"
)

const statusInterval = 500 * time.Millisecond

// Application is the desktop front end of a session.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger logrus.FieldLogger
	ctrl   session.Controller

	view  *VideoView
	panel *ControlPanel

	mainContent *container.Split
	statusCard  *widget.Card
	statusText  *widget.Label

	onClose func()
}

func NewApplication(app fyne.App, ctrl session.Controller, logger logrus.FieldLogger) *Application {
	window := app.NewWindow("Invisible Cloak")
	window.Resize(fyne.NewSize(1280, 760))
	window.CenterOnScreen()

	appInstance := &Application{
		app:    app,
		window: window,
		logger: logger,
		ctrl:   ctrl,
	}

	appInstance.initializeGUI()
	appInstance.setupLayout()
	appInstance.setupCallbacks()

	return appInstance
}

func (a *Application) initializeGUI() {
	a.view = NewVideoView(a.logger)
	a.panel = NewControlPanel(a.ctrl, a.ctrl.Status().Presets, a.logger)
	a.statusText = widget.NewLabel("Starting camera")
}

func (a *Application) setupLayout() {
	a.statusCard = widget.NewCard("", "", a.statusText)

	a.mainContent = container.NewHSplit(
		container.NewPadded(a.view),
		container.NewVScroll(a.panel.GetContainer()),
	)
	a.mainContent.SetOffset(0.72)

	a.window.SetContent(container.NewBorder(nil, a.statusCard, nil, nil, a.mainContent))
}

func (a *Application) setupCallbacks() {
	a.view.SetPickCallback(a.pickAt)

	a.panel.SetCallbacks(
		// onError
		func(err error) {
			a.showError("Action failed", err)
		},
		// onMessage
		a.updateStatusMessage,
		// onPreset
		func(string) {
			a.view.ClearMarker()
		},
	)
}

// Sink returns the video view for registration with the session.
func (a *Application) Sink() session.Sink {
	return a.view
}

// SetCloseCallback sets the function run when the window is closed.
func (a *Application) SetCloseCallback(callback func()) {
	a.onClose = callback
}

func (a *Application) pickAt(point image.Point) {
	r, err := a.ctrl.PickAt(point.X, point.Y)
	if err != nil {
		a.showError("Color pick failed", err)
		return
	}
	a.updateStatusMessage(fmt.Sprintf("Picked color at (%d, %d): %s", point.X, point.Y, r))
	a.panel.Refresh(a.ctrl.Status())
}

func (a *Application) updateStatusMessage(message string) {
	a.statusText.SetText(message)
}

// ShowAndRun blocks until the window is closed. The panel is refreshed
// periodically until ctx is done.
func (a *Application) ShowAndRun(ctx context.Context) {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.logger.Info("Main window closed")
		if a.onClose != nil {
			a.onClose()
		}
		a.app.Quit()
	})

	go a.refreshLoop(ctx)

	a.window.ShowAndRun()
}

// Quit closes the window from any goroutine.
func (a *Application) Quit() {
	fyne.Do(a.app.Quit)
}

func (a *Application) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := a.ctrl.Status()
			fyne.Do(func() {
				a.panel.Refresh(status)
			})
		}
	}
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage(fmt.Sprintf("%s: %s", title, err))
}
