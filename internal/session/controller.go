package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"invisible-cloak/internal/core"
	"invisible-cloak/internal/io"
	"invisible-cloak/internal/metrics"
	"invisible-cloak/internal/recording"
)

// CustomPreset names a range that did not come from the preset table.
const CustomPreset = "custom"

// Controller is the command surface shared by the GUI and the HTTP server.
type Controller interface {
	SetEnabled(enabled bool)
	Toggle() bool
	SelectPreset(name string) (core.HSVRange, error)
	SetRange(r core.HSVRange) error
	PickAt(x, y int) (core.HSVRange, error)
	StartRecording() (string, error)
	StopRecording() (recording.Status, error)
	RecaptureBackground() time.Duration
	SaveSnapshot() (string, error)
	SnapshotJPEG() ([]byte, error)
	Status() Status
}

var _ Controller = (*Session)(nil)

// Status is a point-in-time view of the session.
type Status struct {
	SessionID        string           `json:"session_id"`
	Enabled          bool             `json:"enabled"`
	Preset           string           `json:"preset"`
	Lower            [3]int           `json:"lower"`
	Upper            [3]int           `json:"upper"`
	Presets          []string         `json:"presets"`
	Frame            core.FrameInfo   `json:"frame"`
	RecapturePending bool             `json:"recapture_pending"`
	Recording        recording.Status `json:"recording"`
	Metrics          metrics.Snapshot `json:"metrics"`
}

func (s *Session) SetEnabled(enabled bool) {
	s.pipeline.SetEnabled(enabled)
}

func (s *Session) Toggle() bool {
	return s.pipeline.Toggle()
}

// SelectPreset activates a named color from the session's preset table.
func (s *Session) SelectPreset(name string) (core.HSVRange, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r, ok := s.opts.Presets[key]
	if !ok {
		return core.HSVRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if err := s.pipeline.SetRange(r); err != nil {
		return core.HSVRange{}, err
	}
	s.setPreset(key)
	return r, nil
}

// SetRange activates an explicit color range.
func (s *Session) SetRange(r core.HSVRange) error {
	if err := s.pipeline.SetRange(r); err != nil {
		return err
	}
	s.setPreset(CustomPreset)
	return nil
}

// PickAt centres the color range on the latest camera frame at (x, y).
func (s *Session) PickAt(x, y int) (core.HSVRange, error) {
	var picked core.HSVRange
	ok, err := s.latest.With(func(frame gocv.Mat) error {
		var err error
		picked, err = s.pipeline.PickRangeWithSpread(frame, x, y, s.opts.Spread)
		return err
	})
	if !ok {
		return core.HSVRange{}, ErrNoFrame
	}
	if err != nil {
		return core.HSVRange{}, err
	}
	s.setPreset(CustomPreset)
	return picked, nil
}

func (s *Session) StartRecording() (string, error) {
	if s.recorder == nil {
		return "", ErrRecordingUnavailable
	}
	return s.recorder.Start()
}

func (s *Session) StopRecording() (recording.Status, error) {
	if s.recorder == nil {
		return recording.Status{}, ErrRecordingUnavailable
	}
	return s.recorder.Stop()
}

// RecaptureBackground schedules a new background capture after the
// configured delay and returns that delay. The loop keeps running until then.
func (s *Session) RecaptureBackground() time.Duration {
	delay := s.opts.RecaptureDelay
	if delay < 0 {
		delay = 0
	}
	s.recaptureAt.Store(s.now().Add(delay).UnixNano())

	s.logger.WithField("delay", delay).Info("Background recapture scheduled, please move out of frame")
	return delay
}

// SaveSnapshot writes the latest output frame to the snapshot directory.
func (s *Session) SaveSnapshot() (string, error) {
	frame, ok := s.output.Get()
	defer frame.Close()
	if !ok {
		return "", ErrNoFrame
	}
	return s.loader.SaveSnapshot(frame, s.opts.SnapshotDir, "cloak")
}

// SnapshotJPEG encodes the latest output frame.
func (s *Session) SnapshotJPEG() ([]byte, error) {
	var data []byte
	ok, err := s.output.With(func(frame gocv.Mat) error {
		var err error
		data, err = io.EncodeJPEG(frame)
		return err
	})
	if !ok {
		return nil, ErrNoFrame
	}
	return data, err
}

func (s *Session) Status() Status {
	state := s.pipeline.State()

	status := Status{
		SessionID:        s.id,
		Enabled:          state.Enabled,
		Preset:           s.activePreset(),
		Lower:            state.ActiveRange.Lower.Ints(),
		Upper:            state.ActiveRange.Upper.Ints(),
		Presets:          core.PresetNames(s.opts.Presets),
		Frame:            s.latest.Info(),
		RecapturePending: s.recaptureAt.Load() != 0,
		Metrics:          s.metrics.Snapshot(),
	}
	if s.recorder != nil {
		status.Recording = s.recorder.Status()
	}
	return status
}

func (s *Session) setPreset(name string) {
	s.presetMu.Lock()
	old := s.preset
	s.preset = name
	s.presetMu.Unlock()

	if old != name {
		s.logger.WithFields(logrus.Fields{
			"old_preset": old,
			"new_preset": name,
		}).Debug("Active preset changed")
	}
}

func (s *Session) activePreset() string {
	s.presetMu.RLock()
	defer s.presetMu.RUnlock()
	return s.preset
}
