package core

import (
	"fmt"

	"gocv.io/x/gocv"

	"invisible-cloak/internal/algorithms"
)

// Mask pixel values.
const (
	MaskSelected    uint8 = 255
	MaskNotSelected uint8 = 0
)

// MaskOptions tunes the morphological cleanup applied after thresholding.
type MaskOptions struct {
	KernelSize       int
	OpenIterations   int
	DilateIterations int
}

// DefaultMaskOptions returns a 5x5 kernel, two opening iterations and one
// dilation.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{
		KernelSize:       5,
		OpenIterations:   2,
		DilateIterations: 1,
	}
}

// Validate checks kernel size and iteration counts.
func (o MaskOptions) Validate() error {
	if err := algorithms.ValidateKernelSize(o.KernelSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if err := algorithms.ValidateIterations(o.OpenIterations); err != nil {
		return fmt.Errorf("%w: open %v", ErrInvalidOptions, err)
	}
	if err := algorithms.ValidateIterations(o.DilateIterations); err != nil {
		return fmt.Errorf("%w: dilate %v", ErrInvalidOptions, err)
	}
	return nil
}

// ComputeMask selects the pixels of a BGR frame whose HSV value lies in r
// and cleans the result with opening followed by dilation. The returned
// single-channel mask holds only MaskSelected and MaskNotSelected and is
// owned by the caller.
func ComputeMask(frame gocv.Mat, r HSVRange, opts MaskOptions) (gocv.Mat, error) {
	if err := ValidateFrame(frame); err != nil {
		return gocv.NewMat(), err
	}
	if err := r.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	if err := opts.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV); err != nil {
		return gocv.NewMat(), fmt.Errorf("convert to HSV: %w", err)
	}

	raw := threshold(hsv, r)
	defer raw.Close()

	kernel, err := algorithms.NewRectKernel(opts.KernelSize)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	defer kernel.Close()

	opened, err := algorithms.Open(raw, kernel, opts.OpenIterations)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("opening: %w", err)
	}
	defer opened.Close()

	mask, err := algorithms.Dilate(opened, kernel, opts.DilateIterations)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("dilation: %w", err)
	}

	return mask, nil
}

// threshold marks in-range pixels of an HSV image. A wrapping hue band is
// split into [lower, MaxHue] and [0, upper] and the halves are merged.
func threshold(hsv gocv.Mat, r HSVRange) gocv.Mat {
	mask := gocv.NewMat()

	if !r.WrapsHue() {
		gocv.InRangeWithScalar(hsv, r.Lower.scalar(), r.Upper.scalar(), &mask)
		return mask
	}

	high := gocv.NewMat()
	defer high.Close()
	low := gocv.NewMat()
	defer low.Close()

	highUpper := HSV{H: MaxHue, S: r.Upper.S, V: r.Upper.V}
	lowLower := HSV{H: 0, S: r.Lower.S, V: r.Lower.V}

	gocv.InRangeWithScalar(hsv, r.Lower.scalar(), highUpper.scalar(), &high)
	gocv.InRangeWithScalar(hsv, lowLower.scalar(), r.Upper.scalar(), &low)
	gocv.BitwiseOr(high, low, &mask)

	return mask
}

// Coverage returns the fraction of selected pixels in mask.
func Coverage(mask gocv.Mat) float64 {
	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
