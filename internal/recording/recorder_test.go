package recording

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeWriter struct {
	written int
	closed  bool
	failing bool
}

func (w *fakeWriter) Write(gocv.Mat) error {
	if w.failing {
		return errors.New("disk full")
	}
	w.written++
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type opener struct {
	writer  *fakeWriter
	calls   int
	width   int
	height  int
	path    string
	openErr error
}

func (o *opener) open(path, codec string, fps float64, width, height int) (Writer, error) {
	o.calls++
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.path, o.width, o.height = path, width, height
	return o.writer, nil
}

func frame(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func newTestRecorder(t *testing.T, o *opener) *Recorder {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return newRecorder(Options{OutputDir: filepath.Join(t.TempDir(), "videos")}, o.open, logger)
}

func TestRecorder_Lifecycle(t *testing.T) {
	o := &opener{writer: &fakeWriter{}}
	r := newTestRecorder(t, o)

	r.Put(frame(t, 48, 64))
	assert.Zero(t, o.calls, "idle recorder ignores frames")

	path, err := r.Start()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "cloak-"))
	assert.Equal(t, ".avi", filepath.Ext(path))
	assert.DirExists(t, filepath.Dir(path))

	_, err = r.Start()
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	r.Put(frame(t, 48, 64))
	r.Put(frame(t, 48, 64))
	r.Put(frame(t, 10, 10))

	assert.Equal(t, 1, o.calls)
	assert.Equal(t, 64, o.width)
	assert.Equal(t, 48, o.height)
	assert.Equal(t, path, o.path)
	assert.Equal(t, 2, o.writer.written)

	status, err := r.Stop()
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, uint64(2), status.Frames)
	assert.True(t, o.writer.closed)

	_, err = r.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorder_NewFileEachStart(t *testing.T) {
	o := &opener{writer: &fakeWriter{}}
	r := newTestRecorder(t, o)

	first, err := r.Start()
	require.NoError(t, err)
	_, err = r.Stop()
	require.NoError(t, err)

	second, err := r.Start()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	require.NoError(t, r.Close())
	assert.False(t, r.Status().Active)
}

func TestRecorder_OpenFailureStopsRecording(t *testing.T) {
	o := &opener{openErr: errors.New("codec missing")}
	r := newTestRecorder(t, o)

	_, err := r.Start()
	require.NoError(t, err)

	r.Put(frame(t, 8, 8))
	assert.False(t, r.Status().Active)
}

func TestRecorder_WriteErrorsAreNotCounted(t *testing.T) {
	o := &opener{writer: &fakeWriter{failing: true}}
	r := newTestRecorder(t, o)

	_, err := r.Start()
	require.NoError(t, err)
	r.Put(frame(t, 8, 8))

	assert.True(t, r.Status().Active)
	assert.Zero(t, r.Status().Frames)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".avi", extensionFor("XVID"))
	assert.Equal(t, ".avi", extensionFor("MJPG"))
	assert.Equal(t, ".mp4", extensionFor("mp4v"))
}
