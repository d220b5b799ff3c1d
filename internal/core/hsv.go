// HSV color model shared by masking, presets and point picking
package core

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Hue follows OpenCV's 8-bit convention (degrees / 2), saturation and
// value use the full byte.
const (
	MaxHue        = 179
	MaxSaturation = 255
	MaxValue      = 255

	hueCycle = MaxHue + 1
)

// HSV is a single color in the 8-bit OpenCV HSV space.
type HSV struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// HSVFromInts builds an HSV color from untyped integers, rejecting values
// that do not fit the hue or byte ranges.
func HSVFromInts(h, s, v int) (HSV, error) {
	if h < 0 || h > MaxHue {
		return HSV{}, fmt.Errorf("%w: hue %d not in 0..%d", ErrInvalidRange, h, MaxHue)
	}
	if s < 0 || s > MaxSaturation {
		return HSV{}, fmt.Errorf("%w: saturation %d not in 0..%d", ErrInvalidRange, s, MaxSaturation)
	}
	if v < 0 || v > MaxValue {
		return HSV{}, fmt.Errorf("%w: value %d not in 0..%d", ErrInvalidRange, v, MaxValue)
	}
	return HSV{H: uint8(h), S: uint8(s), V: uint8(v)}, nil
}

// Ints returns the components as a [h, s, v] triple.
func (c HSV) Ints() [3]int {
	return [3]int{int(c.H), int(c.S), int(c.V)}
}

func (c HSV) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.H, c.S, c.V)
}

func (c HSV) scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.H), float64(c.S), float64(c.V), 0)
}

// HSVRange is an inclusive lower/upper bound pair. A lower hue greater than
// the upper hue describes a band that wraps through hue 0, as red does.
type HSVRange struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// NewHSVRange returns a validated range.
func NewHSVRange(lower, upper HSV) (HSVRange, error) {
	r := HSVRange{Lower: lower, Upper: upper}
	if err := r.Validate(); err != nil {
		return HSVRange{}, err
	}
	return r, nil
}

// Validate checks the component bounds. Hue may wrap, saturation and value
// may not.
func (r HSVRange) Validate() error {
	if r.Lower.H > MaxHue || r.Upper.H > MaxHue {
		return fmt.Errorf("%w: hue bounds %d..%d exceed %d", ErrInvalidRange, r.Lower.H, r.Upper.H, MaxHue)
	}
	if r.Lower.S > r.Upper.S {
		return fmt.Errorf("%w: saturation lower %d > upper %d", ErrInvalidRange, r.Lower.S, r.Upper.S)
	}
	if r.Lower.V > r.Upper.V {
		return fmt.Errorf("%w: value lower %d > upper %d", ErrInvalidRange, r.Lower.V, r.Upper.V)
	}
	return nil
}

// WrapsHue reports whether the hue band crosses 0.
func (r HSVRange) WrapsHue() bool {
	return r.Lower.H > r.Upper.H
}

// Contains reports whether c falls inside the range, honoring hue wrap.
func (r HSVRange) Contains(c HSV) bool {
	if c.S < r.Lower.S || c.S > r.Upper.S || c.V < r.Lower.V || c.V > r.Upper.V {
		return false
	}
	if r.WrapsHue() {
		return c.H >= r.Lower.H || c.H <= r.Upper.H
	}
	return c.H >= r.Lower.H && c.H <= r.Upper.H
}

func (r HSVRange) String() string {
	return fmt.Sprintf("%s-%s", r.Lower, r.Upper)
}
