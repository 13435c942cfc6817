package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// HandSpec pins the landmarks the controller reads. Every other landmark
// is laid out along the line from wrist to middle MCP.
type HandSpec struct {
	Wrist     Point3D
	MiddleMCP Point3D
	ThumbTip  Point3D
	IndexTip  Point3D
}

// NewHand builds a full 21-point hand from spec.
func NewHand(spec HandSpec) HandLandmarks {
	hand := HandLandmarks{Handedness: "Right", Score: 0.95}

	for i := 0; i < NumLandmarks; i++ {
		t := float64(i) / float64(NumLandmarks-1)
		hand.Points[i] = Point3D{
			X: spec.Wrist.X + (spec.MiddleMCP.X-spec.Wrist.X)*t,
			Y: spec.Wrist.Y + (spec.MiddleMCP.Y-spec.Wrist.Y)*t,
		}
	}
	hand.Points[Wrist] = spec.Wrist
	hand.Points[MiddleMCP] = spec.MiddleMCP
	hand.Points[ThumbTip] = spec.ThumbTip
	hand.Points[IndexTip] = spec.IndexTip

	return hand
}

// OrientationHand returns a hand right of center whose middle MCP sits at
// (middleX, middleY) and whose thumb and index tips are pinch apart.
func OrientationHand(middleX, middleY, pinch float64) HandLandmarks {
	return NewHand(HandSpec{
		Wrist:     Point3D{X: 0.75, Y: 0.8},
		MiddleMCP: Point3D{X: middleX, Y: middleY},
		ThumbTip:  Point3D{X: middleX, Y: middleY - 0.1},
		IndexTip:  Point3D{X: middleX + pinch, Y: middleY - 0.1},
	})
}

// PointerHand returns a hand left of center with its index tip at
// (indexX, indexY). When pinching the thumb touches the index tip.
func PointerHand(indexX, indexY float64, pinching bool) HandLandmarks {
	thumb := Point3D{X: indexX + 0.01, Y: indexY}
	if !pinching {
		thumb = Point3D{X: indexX + 0.15, Y: indexY + 0.1}
	}
	return NewHand(HandSpec{
		Wrist:     Point3D{X: 0.25, Y: 0.8},
		MiddleMCP: Point3D{X: 0.25, Y: 0.6},
		ThumbTip:  thumb,
		IndexTip:  Point3D{X: indexX, Y: indexY},
	})
}
