package core

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// FrameSource produces frames on demand. Read fills m and reports whether a
// frame was obtained; sporadic failures are expected. *gocv.VideoCapture
// satisfies it.
type FrameSource interface {
	Read(m *gocv.Mat) bool
}

// BackgroundOptions controls the capture burst.
type BackgroundOptions struct {
	FrameCount int
	// Interval is a pacing delay between reads, not a timeout.
	Interval time.Duration
	Logger   logrus.FieldLogger
}

// DefaultBackgroundOptions returns 30 frames spaced 100ms apart.
func DefaultBackgroundOptions() BackgroundOptions {
	return BackgroundOptions{
		FrameCount: 30,
		Interval:   100 * time.Millisecond,
	}
}

// CaptureBackground reads a burst of frames from source and reduces them to
// a static background with a per-pixel, per-channel median. Failed reads and
// frames whose geometry differs from the first good frame are logged and
// skipped. When no frame could be used it fails with ErrCaptureExhausted.
func CaptureBackground(ctx context.Context, source FrameSource, opts BackgroundOptions) (gocv.Mat, error) {
	if opts.FrameCount < 1 {
		return gocv.NewMat(), fmt.Errorf("%w: frame count must be at least 1, got %d", ErrInvalidOptions, opts.FrameCount)
	}
	if opts.Interval < 0 {
		return gocv.NewMat(), fmt.Errorf("%w: negative capture interval %s", ErrInvalidOptions, opts.Interval)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	logger.WithFields(logrus.Fields{
		"frames":   opts.FrameCount,
		"interval": opts.Interval,
	}).Info("Capturing background, please move out of frame")

	frame := gocv.NewMat()
	defer frame.Close()

	var (
		samples [][]byte
		info    FrameInfo
	)

	for i := 0; i < opts.FrameCount; i++ {
		if err := ctx.Err(); err != nil {
			return gocv.NewMat(), err
		}

		attempt := logger.WithFields(logrus.Fields{
			"attempt": i + 1,
			"total":   opts.FrameCount,
		})

		ok := source.Read(&frame) && !frame.Empty()
		var invalid error
		if ok {
			invalid = ValidateFrame(frame)
		}

		switch {
		case !ok:
			attempt.Warn("Could not read background frame")
		case invalid != nil:
			attempt.WithError(invalid).Warn("Skipping unusable background frame")
		case len(samples) > 0 && InfoOf(frame) != info:
			attempt.WithFields(logrus.Fields{
				"expected": info.String(),
				"got":      InfoOf(frame).String(),
			}).Warn("Skipping background frame with different geometry")
		default:
			if len(samples) == 0 {
				info = InfoOf(frame)
			}
			samples = append(samples, frame.ToBytes())
		}

		if i < opts.FrameCount-1 && opts.Interval > 0 {
			if err := sleepContext(ctx, opts.Interval); err != nil {
				return gocv.NewMat(), err
			}
		}
	}

	if len(samples) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: 0 of %d reads succeeded", ErrCaptureExhausted, opts.FrameCount)
	}

	data := medianBytes(samples)
	wrapped, err := gocv.NewMatFromBytes(info.Height, info.Width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("build background: %w", err)
	}
	background := wrapped.Clone()
	wrapped.Close()
	runtime.KeepAlive(data)

	logger.WithFields(logrus.Fields{
		"used":    len(samples),
		"dropped": opts.FrameCount - len(samples),
		"size":    info.String(),
	}).Info("Background captured")

	return background, nil
}

// medianBytes computes the element-wise median of equally sized samples.
// For an even count the two middle values are averaged and truncated.
func medianBytes(samples [][]byte) []byte {
	n := len(samples)
	out := make([]byte, len(samples[0]))
	column := make([]byte, n)

	for i := range out {
		for k, s := range samples {
			column[k] = s[i]
		}
		out[i] = median(column)
	}
	return out
}

// median sorts values in place.
func median(values []byte) byte {
	n := len(values)
	if n == 1 {
		return values[0]
	}
	slices.Sort(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return byte((int(values[n/2-1]) + int(values[n/2])) / 2)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
