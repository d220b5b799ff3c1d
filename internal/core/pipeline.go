// internal/core/pipeline.go
// Cloak pipeline: per-frame masking and compositing driven by mutable state
package core

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"invisible-cloak/internal/metrics"
)

// PipelineState is the externally controlled part of the pipeline.
type PipelineState struct {
	Enabled     bool     `json:"enabled"`
	ActiveRange HSVRange `json:"active_range"`
}

// PipelineOptions configures a CloakPipeline.
type PipelineOptions struct {
	Mask    MaskOptions
	Metrics *metrics.Tracker
	Logger  logrus.FieldLogger
}

// PickSpread holds the half widths applied around a picked color.
type PickSpread struct {
	Hue        int `json:"hue"`
	Saturation int `json:"saturation"`
	Value      int `json:"value"`
}

// UniformSpread applies the same half width to every component.
func UniformSpread(halfWidth int) PickSpread {
	return PickSpread{Hue: halfWidth, Saturation: halfWidth, Value: halfWidth}
}

// Validate rejects negative half widths.
func (s PickSpread) Validate() error {
	if s.Hue < 0 || s.Saturation < 0 || s.Value < 0 {
		return fmt.Errorf("%w: negative pick spread %+v", ErrInvalidRange, s)
	}
	return nil
}

// CloakPipeline turns camera frames into cloaked frames. State changes made
// from other goroutines take effect on the next ProcessFrame call.
type CloakPipeline struct {
	mu         sync.RWMutex
	state      PipelineState
	background gocv.Mat

	maskOpts MaskOptions
	metrics  *metrics.Tracker
	logger   logrus.FieldLogger
}

// NewCloakPipeline creates a pipeline that owns background.
func NewCloakPipeline(background gocv.Mat, initial PipelineState, opts PipelineOptions) (*CloakPipeline, error) {
	if err := ValidateFrame(background); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if err := initial.ActiveRange.Validate(); err != nil {
		return nil, err
	}
	if opts.Mask == (MaskOptions{}) {
		opts.Mask = DefaultMaskOptions()
	}
	if err := opts.Mask.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &CloakPipeline{
		state:      initial,
		background: background,
		maskOpts:   opts.Mask,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// ProcessFrame returns a new Mat owned by the caller. When the cloak is
// disabled the result is an exact copy of frame.
func (p *CloakPipeline) ProcessFrame(frame gocv.Mat) (gocv.Mat, error) {
	start := time.Now()

	if err := ValidateFrame(frame); err != nil {
		p.recordError()
		return gocv.NewMat(), err
	}

	state := p.State()
	if !state.Enabled {
		output := frame.Clone()
		p.record(time.Since(start), 0)
		return output, nil
	}

	mask, err := ComputeMask(frame, state.ActiveRange, p.maskOpts)
	if err != nil {
		p.recordError()
		return gocv.NewMat(), fmt.Errorf("compute mask: %w", err)
	}
	defer mask.Close()

	p.mu.RLock()
	output, err := Composite(frame, mask, p.background)
	p.mu.RUnlock()
	if err != nil {
		p.recordError()
		return gocv.NewMat(), fmt.Errorf("composite: %w", err)
	}

	p.record(time.Since(start), Coverage(mask))
	return output, nil
}

// State returns a consistent snapshot of the pipeline state.
func (p *CloakPipeline) State() PipelineState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetRange replaces the active color range.
func (p *CloakPipeline) SetRange(r HSVRange) error {
	if err := r.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	old := p.state.ActiveRange
	p.state.ActiveRange = r
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"old_range": old.String(),
		"new_range": r.String(),
	}).Info("Cloak color range changed")
	return nil
}

// SetEnabled turns the cloak effect on or off.
func (p *CloakPipeline) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.state.Enabled = enabled
	p.mu.Unlock()

	p.logger.WithField("enabled", enabled).Info("Cloak toggled")
}

// Toggle flips the enabled flag and returns the new value.
func (p *CloakPipeline) Toggle() bool {
	p.mu.Lock()
	p.state.Enabled = !p.state.Enabled
	enabled := p.state.Enabled
	p.mu.Unlock()

	p.logger.WithField("enabled", enabled).Info("Cloak toggled")
	return enabled
}

// PickRangeAt centres the active range on the color of frame at (x, y),
// widening every component by halfWidth.
func (p *CloakPipeline) PickRangeAt(frame gocv.Mat, x, y, halfWidth int) (HSVRange, error) {
	return p.PickRangeWithSpread(frame, x, y, UniformSpread(halfWidth))
}

// PickRangeWithSpread is PickRangeAt with per-component half widths.
func (p *CloakPipeline) PickRangeWithSpread(frame gocv.Mat, x, y int, spread PickSpread) (HSVRange, error) {
	if err := spread.Validate(); err != nil {
		return HSVRange{}, err
	}

	color, err := HSVAt(frame, x, y)
	if err != nil {
		return HSVRange{}, err
	}

	r := RangeAround(color, spread)
	if err := p.SetRange(r); err != nil {
		return HSVRange{}, err
	}

	p.logger.WithFields(logrus.Fields{
		"x":     x,
		"y":     y,
		"color": color.String(),
		"range": r.String(),
	}).Debug("Color picked")
	return r, nil
}

// SetBackground swaps in a freshly captured background and releases the
// previous one.
func (p *CloakPipeline) SetBackground(background gocv.Mat) error {
	if err := ValidateFrame(background); err != nil {
		return fmt.Errorf("background: %w", err)
	}

	p.mu.Lock()
	old := p.background
	p.background = background
	p.mu.Unlock()

	old.Close()
	p.logger.WithField("size", InfoOf(background).String()).Info("Background replaced")
	return nil
}

// Background returns a copy of the current background.
func (p *CloakPipeline) Background() gocv.Mat {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.background.Clone()
}

// Close releases the background.
func (p *CloakPipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.background.Close()
}

func (p *CloakPipeline) record(latency time.Duration, coverage float64) {
	if p.metrics != nil {
		p.metrics.RecordProcessed(latency, coverage)
	}
}

func (p *CloakPipeline) recordError() {
	if p.metrics != nil {
		p.metrics.RecordError()
	}
}

// HSVAt converts the pixel of a BGR frame at (x, y) to HSV using the same
// conversion as ComputeMask.
func HSVAt(frame gocv.Mat, x, y int) (HSV, error) {
	if err := ValidateFrame(frame); err != nil {
		return HSV{}, err
	}
	if x < 0 || y < 0 || x >= frame.Cols() || y >= frame.Rows() {
		return HSV{}, fmt.Errorf("%w: (%d, %d) not in %dx%d", ErrInvalidPoint, x, y, frame.Cols(), frame.Rows())
	}

	pixel := frame.Region(image.Rect(x, y, x+1, y+1))
	defer pixel.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(pixel, &hsv, gocv.ColorBGRToHSV); err != nil {
		return HSV{}, fmt.Errorf("convert to HSV: %w", err)
	}

	v := hsv.GetVecbAt(0, 0)
	return HSV{H: v[0], S: v[1], V: v[2]}, nil
}

// RangeAround builds a range centred on c. Hue wraps around the 180-step
// circle and covers it entirely once the band would overlap itself;
// saturation and value are clamped to 0..255.
func RangeAround(c HSV, spread PickSpread) HSVRange {
	var lower, upper HSV

	if 2*spread.Hue+1 >= hueCycle {
		lower.H, upper.H = 0, MaxHue
	} else {
		lower.H = uint8((int(c.H) - spread.Hue + hueCycle) % hueCycle)
		upper.H = uint8((int(c.H) + spread.Hue) % hueCycle)
	}

	lower.S = clampByte(int(c.S) - spread.Saturation)
	upper.S = clampByte(int(c.S) + spread.Saturation)
	lower.V = clampByte(int(c.V) - spread.Value)
	upper.V = clampByte(int(c.V) + spread.Value)

	return HSVRange{Lower: lower, Upper: upper}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
