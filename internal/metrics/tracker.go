// Frame statistics for a processing session
package metrics

import (
	"fmt"
	"sync"
	"time"
)

// latencySmoothing is the weight of the newest sample in the latency average.
const latencySmoothing = 0.1

// Snapshot is a point-in-time copy of the tracker counters.
type Snapshot struct {
	FramesRead      uint64        `json:"frames_read"`
	ReadFailures    uint64        `json:"read_failures"`
	FramesProcessed uint64        `json:"frames_processed"`
	FrameErrors     uint64        `json:"frame_errors"`
	MaskCoverage    float64       `json:"mask_coverage"`
	LastLatency     time.Duration `json:"last_latency_ns"`
	MeanLatency     time.Duration `json:"mean_latency_ns"`
	FPS             float64       `json:"fps"`
	Uptime          time.Duration `json:"uptime_ns"`
}

// Summary renders the snapshot as a short status line.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("%.1f fps | %s/frame | cloak %.1f%% | dropped %d",
		s.FPS, s.MeanLatency.Round(time.Microsecond), s.MaskCoverage*100, s.ReadFailures)
}

// Tracker accumulates frame statistics. It is safe for concurrent use.
type Tracker struct {
	mu sync.RWMutex

	framesRead      uint64
	readFailures    uint64
	framesProcessed uint64
	frameErrors     uint64
	coverage        float64
	lastLatency     time.Duration
	meanLatency     float64
	started         time.Time
	now             func() time.Time
}

// NewTracker creates a tracker whose uptime starts now.
func NewTracker() *Tracker {
	return &Tracker{
		started: time.Now(),
		now:     time.Now,
	}
}

// RecordRead counts a frame read attempt.
func (t *Tracker) RecordRead(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ok {
		t.framesRead++
	} else {
		t.readFailures++
	}
}

// RecordProcessed counts a processed frame with its latency and the share of
// pixels replaced by the background.
func (t *Tracker) RecordProcessed(latency time.Duration, coverage float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.framesProcessed++
	t.coverage = coverage
	t.lastLatency = latency

	if t.framesProcessed == 1 {
		t.meanLatency = float64(latency)
	} else {
		t.meanLatency += latencySmoothing * (float64(latency) - t.meanLatency)
	}
}

// RecordError counts a frame that could not be processed.
func (t *Tracker) RecordError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frameErrors++
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	uptime := t.now().Sub(t.started)
	fps := 0.0
	if uptime > 0 {
		fps = float64(t.framesProcessed) / uptime.Seconds()
	}

	return Snapshot{
		FramesRead:      t.framesRead,
		ReadFailures:    t.readFailures,
		FramesProcessed: t.framesProcessed,
		FrameErrors:     t.frameErrors,
		MaskCoverage:    t.coverage,
		LastLatency:     t.lastLatency,
		MeanLatency:     time.Duration(t.meanLatency),
		FPS:             fps,
		Uptime:          uptime,
	}
}

// Reset clears all counters and restarts the uptime clock.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.framesRead = 0
	t.readFailures = 0
	t.framesProcessed = 0
	t.frameErrors = 0
	t.coverage = 0
	t.lastLatency = 0
	t.meanLatency = 0
	t.started = t.now()
}
