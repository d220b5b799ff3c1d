// Processing loop tying a frame source to the cloak pipeline and its sinks
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"invisible-cloak/internal/core"
	"invisible-cloak/internal/io"
	"invisible-cloak/internal/metrics"
	"invisible-cloak/internal/recording"
)

var (
	ErrUnknownPreset        = errors.New("session: unknown preset")
	ErrNoFrame              = errors.New("session: no frame available")
	ErrRecordingUnavailable = errors.New("session: recording not configured")
	ErrSourceExhausted      = errors.New("session: frame source stopped producing frames")
)

// Sink receives every output frame. Implementations must not retain the Mat.
type Sink interface {
	Put(frame gocv.Mat)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(frame gocv.Mat)

func (f SinkFunc) Put(frame gocv.Mat) { f(frame) }

// Recorder is the recording sink driven by the session.
type Recorder interface {
	Sink
	Start() (string, error)
	Stop() (recording.Status, error)
	Status() recording.Status
}

// Options configures a Session.
type Options struct {
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration
	// MaxReadFailures ends Run after that many consecutive failed reads.
	// Zero retries forever.
	MaxReadFailures int

	Background     core.BackgroundOptions
	RecaptureDelay time.Duration
	Spread         core.PickSpread
	Presets        map[string]core.HSVRange
	ActivePreset   string
	SnapshotDir    string
}

// DefaultOptions returns the interactive defaults.
func DefaultOptions() Options {
	return Options{
		RetryDelay:     time.Second,
		Background:     core.DefaultBackgroundOptions(),
		RecaptureDelay: 5 * time.Second,
		Spread:         core.PickSpread{Hue: 10, Saturation: 80, Value: 80},
		Presets:        core.Presets(),
		ActivePreset:   core.DefaultPreset,
		SnapshotDir:    ".",
	}
}

// Session owns the processing loop. Run must be called from exactly one
// goroutine; the Controller methods may be called from any goroutine.
type Session struct {
	id       string
	source   core.FrameSource
	pipeline *core.CloakPipeline
	recorder Recorder
	metrics  *metrics.Tracker
	loader   *io.ImageLoader
	opts     Options
	logger   logrus.FieldLogger

	sinksMu sync.RWMutex
	sinks   []Sink

	presetMu sync.RWMutex
	preset   string

	// Latest camera frame for picking and latest output for snapshots.
	latest *core.FrameStore
	output *core.FrameStore

	// Unix nanoseconds at which a requested recapture starts, 0 when idle.
	recaptureAt atomic.Int64
	now         func() time.Time
}

// New creates a session. recorder and tracker may be nil.
func New(source core.FrameSource, pipeline *core.CloakPipeline, recorder Recorder, tracker *metrics.Tracker, opts Options, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if tracker == nil {
		tracker = metrics.NewTracker()
	}
	if opts.Presets == nil {
		opts.Presets = core.Presets()
	}
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = "."
	}
	if opts.Background.Logger == nil {
		opts.Background.Logger = logger
	}

	id := uuid.NewString()
	return &Session{
		id:       id,
		source:   source,
		pipeline: pipeline,
		recorder: recorder,
		metrics:  tracker,
		loader:   io.NewImageLoader(logger),
		opts:     opts,
		logger:   logger.WithField("session", id),
		preset:   opts.ActivePreset,
		latest:   core.NewFrameStore(),
		output:   core.NewFrameStore(),
		now:      time.Now,
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// AddSink registers a sink for subsequent output frames.
func (s *Session) AddSink(sink Sink) {
	s.sinksMu.Lock()
	defer s.sinksMu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Run reads, processes and distributes frames until ctx is cancelled. It
// returns nil on cancellation and ErrSourceExhausted when MaxReadFailures
// consecutive reads fail.
func (s *Session) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	s.logger.Info("Session started")
	defer s.logger.Info("Session stopped")

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.recaptureDue() {
			s.recapture(ctx)
			continue
		}

		if !s.source.Read(&frame) || frame.Empty() {
			s.metrics.RecordRead(false)
			failures++
			s.logger.WithField("consecutive", failures).Warn("Failed to read frame, retrying")

			if s.opts.MaxReadFailures > 0 && failures >= s.opts.MaxReadFailures {
				return ErrSourceExhausted
			}
			if err := sleepContext(ctx, s.opts.RetryDelay); err != nil {
				return nil
			}
			continue
		}

		failures = 0
		s.metrics.RecordRead(true)
		s.process(frame)
	}
}

func (s *Session) process(frame gocv.Mat) {
	if err := s.latest.Set(frame); err != nil {
		s.logger.WithError(err).Warn("Failed to retain frame")
	}

	output, err := s.pipeline.ProcessFrame(frame)
	if err != nil {
		s.logger.WithError(err).Warn("Skipping frame")
		return
	}
	defer output.Close()

	if err := s.output.Set(output); err != nil {
		s.logger.WithError(err).Warn("Failed to retain output frame")
	}

	if s.recorder != nil {
		s.recorder.Put(output)
	}

	s.sinksMu.RLock()
	defer s.sinksMu.RUnlock()
	for _, sink := range s.sinks {
		sink.Put(output)
	}
}

func (s *Session) recaptureDue() bool {
	at := s.recaptureAt.Load()
	if at == 0 || s.now().UnixNano() < at {
		return false
	}
	return s.recaptureAt.CompareAndSwap(at, 0)
}

func (s *Session) recapture(ctx context.Context) {
	background, err := core.CaptureBackground(ctx, s.source, s.opts.Background)
	if err != nil {
		if errors.Is(err, core.ErrCaptureExhausted) {
			s.logger.WithError(err).Error("Background recapture failed, keeping previous background")
		} else {
			s.logger.WithError(err).Warn("Background recapture aborted")
		}
		return
	}

	if err := s.pipeline.SetBackground(background); err != nil {
		background.Close()
		s.logger.WithError(err).Error("Rejected recaptured background")
	}
}

// Close releases retained frames. Call it after Run has returned.
func (s *Session) Close() {
	s.latest.Close()
	s.output.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
