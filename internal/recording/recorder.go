// Video recording sink for processed frames
package recording

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	ErrAlreadyRecording = errors.New("recording: already recording")
	ErrNotRecording     = errors.New("recording: not recording")
)

// Options configures output location and encoding.
type Options struct {
	OutputDir string
	Codec     string
	FPS       float64
}

// DefaultOptions records XVID at 20 fps into the working directory.
func DefaultOptions() Options {
	return Options{
		OutputDir: ".",
		Codec:     "XVID",
		FPS:       20,
	}
}

// Writer is the part of gocv.VideoWriter the recorder uses.
type Writer interface {
	Write(img gocv.Mat) error
	Close() error
}

// OpenFunc opens a video writer for frames of the given size.
type OpenFunc func(path, codec string, fps float64, width, height int) (Writer, error)

func openVideoWriter(path, codec string, fps float64, width, height int) (Writer, error) {
	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, err
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer for %s not opened (codec %s)", path, codec)
	}
	return writer, nil
}

// Status describes the recorder.
type Status struct {
	Active  bool      `json:"active"`
	Path    string    `json:"path,omitempty"`
	Frames  uint64    `json:"frames"`
	Started time.Time `json:"started,omitempty"`
}

// Recorder writes every frame it is handed while recording is active. The
// video file is opened on the first frame so its size matches the stream.
type Recorder struct {
	mu     sync.Mutex
	opts   Options
	open   OpenFunc
	logger logrus.FieldLogger

	active  bool
	path    string
	writer  Writer
	size    image.Point
	frames  uint64
	dropped uint64
	started time.Time
}

// NewRecorder creates an idle recorder.
func NewRecorder(opts Options, logger logrus.FieldLogger) *Recorder {
	return newRecorder(opts, openVideoWriter, logger)
}

func newRecorder(opts Options, open OpenFunc, logger logrus.FieldLogger) *Recorder {
	defaults := DefaultOptions()
	if opts.OutputDir == "" {
		opts.OutputDir = defaults.OutputDir
	}
	if opts.Codec == "" {
		opts.Codec = defaults.Codec
	}
	if opts.FPS <= 0 {
		opts.FPS = defaults.FPS
	}

	return &Recorder{
		opts:   opts,
		open:   open,
		logger: logger,
	}
}

// Start begins a new recording and returns the file it will be written to.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return r.path, ErrAlreadyRecording
	}

	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	r.path = filepath.Join(r.opts.OutputDir, fmt.Sprintf("cloak-%s%s", uuid.NewString(), extensionFor(r.opts.Codec)))
	r.active = true
	r.frames = 0
	r.dropped = 0
	r.size = image.Point{}
	r.started = time.Now()

	r.logger.WithFields(logrus.Fields{
		"path":  r.path,
		"codec": r.opts.Codec,
		"fps":   r.opts.FPS,
	}).Info("Recording started")

	return r.path, nil
}

// Put writes frame when recording. It never retains the Mat.
func (r *Recorder) Put(frame gocv.Mat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || frame.Empty() {
		return
	}

	size := image.Pt(frame.Cols(), frame.Rows())
	if r.writer == nil {
		writer, err := r.open(r.path, r.opts.Codec, r.opts.FPS, size.X, size.Y)
		if err != nil {
			r.logger.WithError(err).WithField("path", r.path).Error("Failed to open video writer, recording stopped")
			r.active = false
			return
		}
		r.writer = writer
		r.size = size
	}

	if size != r.size {
		r.dropped++
		r.logger.WithFields(logrus.Fields{
			"expected": r.size,
			"got":      size,
		}).Warn("Dropping frame with different size from recording")
		return
	}

	if err := r.writer.Write(frame); err != nil {
		r.dropped++
		r.logger.WithError(err).Warn("Failed to write frame")
		return
	}
	r.frames++
}

// Stop finishes the current recording.
func (r *Recorder) Stop() (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return r.statusLocked(), ErrNotRecording
	}

	err := r.finishLocked()
	status := r.statusLocked()
	status.Active = false

	r.logger.WithFields(logrus.Fields{
		"path":     r.path,
		"frames":   r.frames,
		"dropped":  r.dropped,
		"duration": time.Since(r.started).Round(time.Millisecond),
	}).Info("Recording stopped")

	return status, err
}

// Status returns the current recorder state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// Close stops any active recording.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil
	}
	return r.finishLocked()
}

func (r *Recorder) finishLocked() error {
	r.active = false
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	if err != nil {
		return fmt.Errorf("close video writer: %w", err)
	}
	return nil
}

func (r *Recorder) statusLocked() Status {
	return Status{
		Active:  r.active,
		Path:    r.path,
		Frames:  r.frames,
		Started: r.started,
	}
}

func extensionFor(codec string) string {
	switch strings.ToLower(codec) {
	case "mp4v", "avc1", "h264":
		return ".mp4"
	default:
		return ".avi"
	}
}
