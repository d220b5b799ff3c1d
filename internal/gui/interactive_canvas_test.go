package gui

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"
)

func TestScreenToImageCoords(t *testing.T) {
	frame := image.Pt(640, 480)

	tests := []struct {
		name   string
		widget fyne.Size
		pos    fyne.Position
		want   image.Point
		ok     bool
	}{
		{"same size", fyne.NewSize(640, 480), fyne.NewPos(10, 20), image.Pt(10, 20), true},
		{"half size", fyne.NewSize(320, 240), fyne.NewPos(160, 120), image.Pt(320, 240), true},
		// 800x480 letterboxes 80px on each side.
		{"pillarbox inside", fyne.NewSize(800, 480), fyne.NewPos(80, 0), image.Pt(0, 0), true},
		{"pillarbox left bar", fyne.NewSize(800, 480), fyne.NewPos(40, 100), image.Point{}, false},
		{"pillarbox right bar", fyne.NewSize(800, 480), fyne.NewPos(720, 100), image.Point{}, false},
		// 640x600 letterboxes 60px top and bottom.
		{"letterbox inside", fyne.NewSize(640, 600), fyne.NewPos(639, 539), image.Pt(639, 479), true},
		{"letterbox top bar", fyne.NewSize(640, 600), fyne.NewPos(10, 30), image.Point{}, false},
		{"zero widget", fyne.NewSize(0, 0), fyne.NewPos(0, 0), image.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := screenToImageCoords(tt.widget, frame, tt.pos)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScreenToImageCoords_NoFrame(t *testing.T) {
	_, ok := screenToImageCoords(fyne.NewSize(100, 100), image.Point{}, fyne.NewPos(5, 5))
	assert.False(t, ok)
}

func TestImageToScreenPoint_InvertsMapping(t *testing.T) {
	frame := image.Pt(640, 480)
	screen := imageToScreenPoint(image.Pt(320, 240), frame, 800, 480)
	assert.Equal(t, image.Pt(400, 240), screen)

	back, ok := screenToImageCoords(fyne.NewSize(800, 480), frame, fyne.NewPos(float32(screen.X), float32(screen.Y)))
	assert.True(t, ok)
	assert.Equal(t, image.Pt(320, 240), back)
}

func TestDrawLine(t *testing.T) {
	overlay := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawLine(overlay, image.Pt(-5, 5), image.Pt(20, 5), markerColor, 10, 10)

	for x := 0; x < 10; x++ {
		assert.Equal(t, markerColor, overlay.RGBAAt(x, 5), "x=%d", x)
	}
	assert.Zero(t, overlay.RGBAAt(5, 4).A)
}
