package core

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Composite replaces the pixels of frame selected by mask with the
// corresponding background pixels. All three inputs must share the same
// size; none of them is modified. The caller owns the result.
func Composite(frame, mask, background gocv.Mat) (gocv.Mat, error) {
	if err := ValidateFrame(frame); err != nil {
		return gocv.NewMat(), err
	}
	if err := ValidateFrame(background); err != nil {
		return gocv.NewMat(), fmt.Errorf("background: %w", err)
	}
	if err := ValidateMask(mask); err != nil {
		return gocv.NewMat(), err
	}

	if !sameSize(frame, background) || !sameSize(frame, mask) {
		return gocv.NewMat(), fmt.Errorf("%w: frame %dx%d, mask %dx%d, background %dx%d",
			ErrDimensionMismatch,
			frame.Cols(), frame.Rows(),
			mask.Cols(), mask.Rows(),
			background.Cols(), background.Rows())
	}

	output := frame.Clone()
	background.CopyToWithMask(&output, mask)
	return output, nil
}
