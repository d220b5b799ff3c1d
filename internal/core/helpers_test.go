package core

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// BGR colors with well-known OpenCV hues.
var (
	bgrBlue    = [3]float64{255, 0, 0}   // H 120
	bgrGreen   = [3]float64{0, 255, 0}   // H 60
	bgrCyan    = [3]float64{255, 255, 0} // H 90
	bgrRed178  = [3]float64{17, 0, 255}  // H 178
	bgrBlack   = [3]float64{0, 0, 0}
	bgrGray    = [3]float64{128, 128, 128}
	bgrMagenta = [3]float64{255, 0, 255} // H 150
)

func solidFrame(t *testing.T, bgr [3]float64, rows, cols int) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(bgr[0], bgr[1], bgr[2], 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func solidMask(t *testing.T, value uint8, rows, cols int) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func frameFromBytes(t *testing.T, rows, cols int, data []byte) gocv.Mat {
	t.Helper()
	wrapped, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	mat := wrapped.Clone()
	wrapped.Close()
	t.Cleanup(func() { mat.Close() })
	return mat
}

// paint returns a copy of frame with rect [x0,x1)x[y0,y1) filled.
func paint(t *testing.T, frame gocv.Mat, x0, y0, x1, y1 int, bgr [3]float64) gocv.Mat {
	t.Helper()
	data := frame.ToBytes()
	cols := frame.Cols()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := (y*cols + x) * 3
			data[i] = byte(bgr[0])
			data[i+1] = byte(bgr[1])
			data[i+2] = byte(bgr[2])
		}
	}
	return frameFromBytes(t, frame.Rows(), cols, data)
}

// scriptedSource returns frames[i] when ok[i] is true and fails otherwise.
type scriptedSource struct {
	frames []gocv.Mat
	ok     []bool
	reads  int
}

func (s *scriptedSource) Read(m *gocv.Mat) bool {
	i := s.reads
	s.reads++
	if i >= len(s.ok) || !s.ok[i] {
		return false
	}
	s.frames[i].CopyTo(m)
	return true
}
