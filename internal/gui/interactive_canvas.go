// Live video view with click-to-pick
package gui

import (
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var markerColor = color.RGBA{R: 255, G: 255, B: 255, A: 220}

// VideoView shows the processed stream and reports taps in frame coordinates.
// It is a session sink: Put may be called from the processing goroutine.
type VideoView struct {
	widget.BaseWidget

	logger logrus.FieldLogger

	currentImage  *canvas.Image
	overlayRaster *canvas.Raster

	mu        sync.RWMutex
	frameSize image.Point
	marker    image.Point
	hasMarker bool

	// Set while a frame is queued for the UI goroutine.
	pending atomic.Bool

	onPick func(image.Point)
}

// NewVideoView creates an empty video view.
func NewVideoView(logger logrus.FieldLogger) *VideoView {
	v := &VideoView{logger: logger}

	v.currentImage = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	v.currentImage.FillMode = canvas.ImageFillContain
	v.currentImage.ScaleMode = canvas.ImageScaleFastest

	v.overlayRaster = canvas.NewRaster(v.createOverlay)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer creates the renderer for the video view
func (v *VideoView) CreateRenderer() fyne.WidgetRenderer {
	return &videoViewRenderer{
		image:   v.currentImage,
		overlay: v.overlayRaster,
	}
}

// SetPickCallback sets the function called with the frame coordinates of a tap.
func (v *VideoView) SetPickCallback(callback func(image.Point)) {
	v.onPick = callback
}

// Put converts frame for display. Frames arriving while the previous one is
// still queued for the UI are dropped.
func (v *VideoView) Put(frame gocv.Mat) {
	if !v.pending.CompareAndSwap(false, true) {
		return
	}

	img, err := frame.ToImage()
	if err != nil {
		v.pending.Store(false)
		v.logger.WithError(err).Debug("Failed to convert frame for display")
		return
	}

	v.mu.Lock()
	v.frameSize = image.Pt(frame.Cols(), frame.Rows())
	v.mu.Unlock()

	fyne.Do(func() {
		v.UpdateImage(img)
		v.pending.Store(false)
	})
}

// UpdateImage updates the displayed image. Call it on the UI goroutine.
func (v *VideoView) UpdateImage(img image.Image) {
	if img == nil {
		return
	}
	v.currentImage.Image = img
	v.currentImage.Refresh()
}

// Tapped picks the color under the pointer.
func (v *VideoView) Tapped(event *fyne.PointEvent) {
	size := v.FrameSize()
	point, ok := screenToImageCoords(v.Size(), size, event.Position)
	if !ok {
		return
	}

	v.mu.Lock()
	v.marker = point
	v.hasMarker = true
	v.mu.Unlock()
	v.overlayRaster.Refresh()

	v.logger.WithFields(logrus.Fields{
		"screen": event.Position,
		"frame":  point,
	}).Debug("Video view tapped")

	if v.onPick != nil {
		v.onPick(point)
	}
}

// ClearMarker hides the pick marker, e.g. after a preset was chosen.
func (v *VideoView) ClearMarker() {
	v.mu.Lock()
	v.hasMarker = false
	v.mu.Unlock()
	v.overlayRaster.Refresh()
}

// FrameSize returns the size of the last displayed frame.
func (v *VideoView) FrameSize() image.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frameSize
}

// screenToImageCoords maps a widget position to frame coordinates for an
// image drawn with ImageFillContain. Positions in the letterbox are rejected.
func screenToImageCoords(widgetSize fyne.Size, imageSize image.Point, screenPos fyne.Position) (image.Point, bool) {
	if imageSize.X <= 0 || imageSize.Y <= 0 || widgetSize.Width <= 0 || widgetSize.Height <= 0 {
		return image.Point{}, false
	}

	scale, offsetX, offsetY := containFit(float64(widgetSize.Width), float64(widgetSize.Height), imageSize)

	imageX := (float64(screenPos.X) - offsetX) / scale
	imageY := (float64(screenPos.Y) - offsetY) / scale
	if imageX < 0 || imageY < 0 || imageX >= float64(imageSize.X) || imageY >= float64(imageSize.Y) {
		return image.Point{}, false
	}

	return image.Point{X: int(imageX), Y: int(imageY)}, true
}

// imageToScreenPoint converts a frame point to raster coordinates
func imageToScreenPoint(imagePoint image.Point, imageSize image.Point, w, h int) image.Point {
	scale, offsetX, offsetY := containFit(float64(w), float64(h), imageSize)
	return image.Point{
		X: int(float64(imagePoint.X)*scale + offsetX),
		Y: int(float64(imagePoint.Y)*scale + offsetY),
	}
}

// containFit returns the scale and offsets of an image letterboxed into w x h.
func containFit(w, h float64, imageSize image.Point) (scale, offsetX, offsetY float64) {
	scale = math.Min(w/float64(imageSize.X), h/float64(imageSize.Y))
	offsetX = (w - float64(imageSize.X)*scale) / 2
	offsetY = (h - float64(imageSize.Y)*scale) / 2
	return scale, offsetX, offsetY
}

// createOverlay draws a crosshair on the last picked point
func (v *VideoView) createOverlay(w, h int) image.Image {
	overlay := image.NewRGBA(image.Rect(0, 0, w, h))

	v.mu.RLock()
	marker, hasMarker, size := v.marker, v.hasMarker, v.frameSize
	v.mu.RUnlock()

	if !hasMarker || size.X == 0 || size.Y == 0 {
		return overlay
	}

	p := imageToScreenPoint(marker, size, w, h)
	const arm = 8
	drawLine(overlay, image.Pt(p.X-arm, p.Y), image.Pt(p.X+arm, p.Y), markerColor, w, h)
	drawLine(overlay, image.Pt(p.X, p.Y-arm), image.Pt(p.X, p.Y+arm), markerColor, w, h)
	return overlay
}

// drawLine draws a line between two points
func drawLine(overlay *image.RGBA, p1, p2 image.Point, col color.RGBA, w, h int) {
	// Bresenham
	dx := int(math.Abs(float64(p2.X - p1.X)))
	dy := int(math.Abs(float64(p2.Y - p1.Y)))
	sx := -1
	if p1.X < p2.X {
		sx = 1
	}
	sy := -1
	if p1.Y < p2.Y {
		sy = 1
	}
	err := dx - dy

	x, y := p1.X, p1.Y

	for {
		if x >= 0 && x < w && y >= 0 && y < h {
			overlay.Set(x, y, col)
		}

		if x == p2.X && y == p2.Y {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// videoViewRenderer is the renderer for the video view
type videoViewRenderer struct {
	image   *canvas.Image
	overlay *canvas.Raster
}

func (r *videoViewRenderer) Layout(size fyne.Size) {
	r.image.Resize(size)
	r.overlay.Resize(size)
}

func (r *videoViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 360)
}

func (r *videoViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image, r.overlay}
}

func (r *videoViewRenderer) Refresh() {
	r.image.Refresh()
	r.overlay.Refresh()
}

func (r *videoViewRenderer) Destroy() {
}
