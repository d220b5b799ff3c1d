// Morphological operations for binary mask cleanup
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	MinKernelSize = 1
	MaxKernelSize = 15
	MaxIterations = 10
)

// ValidateKernelSize checks a square structuring element size.
func ValidateKernelSize(size int) error {
	if size < MinKernelSize || size > MaxKernelSize {
		return fmt.Errorf("kernel_size must be between %d and %d, got %d", MinKernelSize, MaxKernelSize, size)
	}
	return nil
}

// ValidateIterations checks an iteration count. Zero is allowed and means
// the operation is skipped.
func ValidateIterations(iterations int) error {
	if iterations < 0 || iterations > MaxIterations {
		return fmt.Errorf("iterations must be between 0 and %d, got %d", MaxIterations, iterations)
	}
	return nil
}

// NewRectKernel creates a square rectangular structuring element. The
// caller closes it.
func NewRectKernel(size int) (gocv.Mat, error) {
	if err := ValidateKernelSize(size); err != nil {
		return gocv.NewMat(), err
	}
	return gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size)), nil
}

// Erode applies erosion the given number of times.
func Erode(input, kernel gocv.Mat, iterations int) (gocv.Mat, error) {
	return repeat(input, kernel, gocv.MorphErode, iterations)
}

// Dilate applies dilation the given number of times.
func Dilate(input, kernel gocv.Mat, iterations int) (gocv.Mat, error) {
	return repeat(input, kernel, gocv.MorphDilate, iterations)
}

// Open performs morphological opening with OpenCV iteration semantics:
// all erosions first, then the same number of dilations.
func Open(input, kernel gocv.Mat, iterations int) (gocv.Mat, error) {
	eroded, err := Erode(input, kernel, iterations)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer eroded.Close()

	return Dilate(eroded, kernel, iterations)
}

func repeat(input, kernel gocv.Mat, op gocv.MorphType, iterations int) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if err := ValidateIterations(iterations); err != nil {
		return gocv.NewMat(), err
	}

	output := input.Clone()
	for i := 0; i < iterations; i++ {
		temp := gocv.NewMat()
		if err := gocv.MorphologyEx(output, &temp, op, kernel); err != nil {
			temp.Close()
			output.Close()
			return gocv.NewMat(), fmt.Errorf("morphology iteration %d: %w", i+1, err)
		}
		output.Close()
		output = temp
	}

	return output, nil
}
