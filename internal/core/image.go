// Frame validation and a thread-safe latest-frame holder
package core

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Prevents runaway allocations from a misconfigured source.
const maxDimension = 16384

// FrameInfo describes the geometry of a frame.
type FrameInfo struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Channels int          `json:"channels"`
	Type     gocv.MatType `json:"type"`
}

// InfoOf returns the geometry of mat.
func InfoOf(mat gocv.Mat) FrameInfo {
	return FrameInfo{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
	}
}

func (fi FrameInfo) String() string {
	return fmt.Sprintf("%dx%d/%dch", fi.Width, fi.Height, fi.Channels)
}

// ValidateFrame checks that mat is a usable 8-bit BGR frame.
func ValidateFrame(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("%w: frame is empty", ErrInvalidFrame)
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidFrame, mat.Cols(), mat.Rows())
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: expected 8-bit 3-channel frame, got %d channels (type %v)",
			ErrInvalidFrame, mat.Channels(), mat.Type())
	}

	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("%w: frame too large: %dx%d (max: %d)", ErrInvalidFrame, mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}

// ValidateMask checks that mat is a single-channel 8-bit mask.
func ValidateMask(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("%w: mask is empty", ErrInvalidFrame)
	}
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("%w: expected 8-bit single-channel mask, got %d channels", ErrInvalidFrame, mat.Channels())
	}
	return nil
}

func sameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

// FrameStore keeps a private copy of the most recent frame so that other
// goroutines can read it while the processing loop moves on.
type FrameStore struct {
	mu    sync.RWMutex
	frame gocv.Mat
	has   bool
}

// NewFrameStore creates an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{frame: gocv.NewMat()}
}

// Set replaces the stored frame with a copy of mat.
func (fs *FrameStore) Set(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("%w: cannot store empty frame", ErrInvalidFrame)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.has {
		mat.CopyTo(&fs.frame)
	} else {
		fs.frame.Close()
		fs.frame = mat.Clone()
	}
	fs.has = true
	return nil
}

// Get returns a copy of the stored frame, or false when nothing is stored.
// The caller owns the returned Mat.
func (fs *FrameStore) Get() (gocv.Mat, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.has {
		return gocv.NewMat(), false
	}
	return fs.frame.Clone(), true
}

// With runs fn against the stored frame without copying it. fn must not
// retain the Mat.
func (fs *FrameStore) With(fn func(frame gocv.Mat) error) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.has {
		return false, nil
	}
	return true, fn(fs.frame)
}

// HasFrame reports whether a frame has been stored.
func (fs *FrameStore) HasFrame() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.has
}

// Info returns the geometry of the stored frame.
func (fs *FrameStore) Info() FrameInfo {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if !fs.has {
		return FrameInfo{}
	}
	return InfoOf(fs.frame)
}

// Close releases the stored frame.
func (fs *FrameStore) Close() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.frame.Close()
	fs.frame = gocv.NewMat()
	fs.has = false
}
