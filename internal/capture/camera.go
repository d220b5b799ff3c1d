// Camera and video file frame sources
package capture

import (
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"invisible-cloak/internal/core"
)

// Source is a frame source that holds a device or file open.
type Source interface {
	core.FrameSource
	Close() error
}

// Options selects and configures a capture device.
type Options struct {
	// Device is a camera index ("0"), a video file path or a stream URL.
	Device string
	Width  int
	Height int
}

// Camera reads frames through OpenCV's VideoCapture.
type Camera struct {
	capture *gocv.VideoCapture
	device  string
	logger  logrus.FieldLogger
}

// Open opens the configured device. Existing paths are opened as files,
// integers as camera indices, anything else is handed to OpenCV as is.
func Open(opts Options, logger logrus.FieldLogger) (*Camera, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("no capture device configured")
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if _, statErr := os.Stat(opts.Device); statErr == nil {
		capture, err = gocv.VideoCaptureFile(opts.Device)
	} else if id, convErr := strconv.Atoi(opts.Device); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.OpenVideoCapture(opts.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture device %q: %w", opts.Device, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("capture device %q could not be opened", opts.Device)
	}

	if opts.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}

	cam := &Camera{
		capture: capture,
		device:  opts.Device,
		logger:  logger,
	}

	size := cam.Size()
	logger.WithFields(logrus.Fields{
		"device": opts.Device,
		"width":  size.X,
		"height": size.Y,
	}).Info("Capture device opened")

	return cam, nil
}

// Read grabs the next frame into m.
func (c *Camera) Read(m *gocv.Mat) bool {
	return c.capture.Read(m)
}

// Size reports the frame size negotiated with the device.
func (c *Camera) Size() image.Point {
	return image.Pt(
		int(c.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(c.capture.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Device returns the configured device string.
func (c *Camera) Device() string {
	return c.device
}

// Close releases the device.
func (c *Camera) Close() error {
	c.logger.WithField("device", c.device).Debug("Closing capture device")
	return c.capture.Close()
}
