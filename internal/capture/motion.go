package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/orbis/internal/timeutil"
)

// Frame differencing parameters.
const (
	// BlurKernel is the Gaussian blur kernel size.
	BlurKernel = 21
	// PixelDelta is the grey-level change that counts a pixel as moved.
	PixelDelta = 25
	// DefaultHold keeps the gate open after the last motion.
	DefaultHold = 2 * time.Second
)

// MotionDetector compares each frame with the previous one.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage
// of pixels that must change for a frame to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect reports whether frame differs from the previous frame by more than
// the threshold, and the percentage of changed pixels. The first frame only
// primes the detector.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	cur := blurredGray(frame)
	defer cur.Close()

	if !m.primed {
		cur.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	pct := changedPercent(cur, m.prev)
	cur.CopyTo(&m.prev)
	return pct > m.threshold, pct
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// Close releases the stored frame. The detector can be reused afterwards.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold changes the threshold. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

func (m *MotionDetector) clearLocked() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

func blurredGray(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	out := gocv.NewMat()
	gocv.GaussianBlur(gray, &out, image.Point{X: BlurKernel, Y: BlurKernel}, 0, 0, gocv.BorderDefault)
	return out
}

func changedPercent(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDelta, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}

// Gate decides whether a frame goes to the hand detector. A hand held still
// must keep steering, so once motion is seen the gate stays open for the
// hold period. A nil detector disables gating.
type Gate struct {
	mu       sync.Mutex
	detector *MotionDetector
	hold     time.Duration
	clock    timeutil.Clock
	last     time.Time
	opened   bool
}

// NewGate creates a Gate. threshold <= 0 returns a gate that passes every
// frame. A nil clock uses the real clock.
func NewGate(threshold float64, hold time.Duration, clock timeutil.Clock) *Gate {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	g := &Gate{hold: hold, clock: clock}
	if threshold > 0 {
		g.detector = NewMotionDetector(threshold)
	}
	return g
}

// Allow reports whether frame should be processed.
func (g *Gate) Allow(frame *gocv.Mat) bool {
	if g.detector == nil {
		return true
	}

	moved, _ := g.detector.Detect(frame)

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	if moved {
		g.last = now
		g.opened = true
	}
	return g.opened && now.Sub(g.last) < g.hold
}

// Enabled reports whether the gate filters at all.
func (g *Gate) Enabled() bool {
	return g.detector != nil
}

// Close releases the detector.
func (g *Gate) Close() {
	if g.detector != nil {
		g.detector.Close()
	}
}
