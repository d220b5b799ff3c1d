package core

import "errors"

var (
	// ErrCaptureExhausted is returned when no frame could be read while
	// building the background.
	ErrCaptureExhausted = errors.New("core: no frames captured for background")

	// ErrInvalidFrame is returned for empty frames or frames of the wrong type.
	ErrInvalidFrame = errors.New("core: invalid frame")

	// ErrDimensionMismatch is returned when frame, mask and background sizes differ.
	ErrDimensionMismatch = errors.New("core: dimension mismatch")

	// ErrInvalidRange is returned for HSV ranges outside the valid bounds.
	ErrInvalidRange = errors.New("core: invalid HSV range")

	// ErrInvalidPoint is returned when a pick point lies outside the frame.
	ErrInvalidPoint = errors.New("core: point outside frame")

	// ErrInvalidOptions is returned for out-of-range tuning options.
	ErrInvalidOptions = errors.New("core: invalid options")
)
