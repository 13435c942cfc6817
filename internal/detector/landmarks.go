// Package detector provides hand detection interfaces and landmark types.
package detector

import "github.com/ayusman/orbis/internal/geom"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is one landmark. X and Y are normalized to [0,1] in the
// mirrored camera image; Z is relative depth and unused by the controller.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// XY drops the depth component.
func (p Point3D) XY() geom.Vec2 {
	return geom.Vec2{X: p.X, Y: p.Y}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// At returns landmark i projected onto the image plane.
func (h *HandLandmarks) At(i int) geom.Vec2 {
	return h.Points[i].XY()
}

// PinchDistance is the 2D distance between thumb tip and index tip.
func (h *HandLandmarks) PinchDistance() float64 {
	return geom.Distance(h.At(ThumbTip), h.At(IndexTip))
}
