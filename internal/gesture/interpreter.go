// Package gesture turns detected hand landmarks into control signals.
package gesture

import (
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/geom"
)

// Role is the job a hand performs in a frame.
type Role int

const (
	// RolePointer moves the info panel.
	RolePointer Role = iota
	// RoleOrientation steers globe rotation and scale.
	RoleOrientation
)

func (r Role) String() string {
	if r == RoleOrientation {
		return "orientation"
	}
	return "pointer"
}

// Screen is the display size used to scale pointer samples.
type Screen struct {
	Width  float64
	Height float64
}

// Signal is the raw control sample derived from one hand.
// Orientation signals carry Rotation and Scale; pointer signals carry Pointer.
type Signal struct {
	Role     Role
	Rotation *geom.Vec2
	Scale    *float64
	Pointer  *geom.Vec2
}

// Frame is the per-role result for one video frame.
type Frame struct {
	Orientation *Signal
	Pointer     *Signal
	Hands       int
}

// Config holds the gesture gains and thresholds.
type Config struct {
	OrientationSplit float64
	YawGain          float64
	PitchGain        float64
	ScaleGain        float64
	MinScale         float64
	MaxScale         float64
	PinchThreshold   float64
}

// DefaultConfig returns the standard gains.
func DefaultConfig() Config {
	return Config{
		OrientationSplit: 0.5,
		YawGain:          8,
		PitchGain:        4,
		ScaleGain:        8,
		MinScale:         0.5,
		MaxScale:         2.5,
		PinchThreshold:   0.05,
	}
}

// Interpreter maps hands to signals. It holds no per-frame state.
type Interpreter struct {
	config Config
}

// NewInterpreter creates an Interpreter with the given configuration.
func NewInterpreter(config Config) *Interpreter {
	return &Interpreter{config: config}
}

// Role assigns a role purely from the wrist x-coordinate.
func (i *Interpreter) Role(hand *detector.HandLandmarks) Role {
	if hand.Points[detector.Wrist].X > i.config.OrientationSplit {
		return RoleOrientation
	}
	return RolePointer
}

// Interpret derives the signal for one hand. The second result is false
// when the hand produces no sample this frame (a pointer hand that is not
// pinching).
func (i *Interpreter) Interpret(hand *detector.HandLandmarks, screen Screen) (Signal, bool) {
	if hand == nil {
		return Signal{}, false
	}

	pinch := hand.PinchDistance()

	if i.Role(hand) == RoleOrientation {
		middle := hand.At(detector.MiddleMCP)
		rotation := geom.Vec2{
			X: (middle.Y - 0.5) * i.config.PitchGain,
			Y: (middle.X - 0.5) * i.config.YawGain,
		}
		scale := i.ScaleFor(pinch)
		return Signal{Role: RoleOrientation, Rotation: &rotation, Scale: &scale}, true
	}

	if pinch >= i.config.PinchThreshold {
		return Signal{}, false
	}

	// The image is mirrored, so x is flipped back into screen space.
	index := hand.At(detector.IndexTip)
	pointer := geom.Vec2{
		X: (1 - index.X) * screen.Width,
		Y: index.Y * screen.Height,
	}
	return Signal{Role: RolePointer, Pointer: &pointer}, true
}

// ScaleFor maps a pinch distance to a clamped scale.
func (i *Interpreter) ScaleFor(pinch float64) float64 {
	return geom.Clamp(pinch*i.config.ScaleGain, i.config.MinScale, i.config.MaxScale)
}

// InterpretFrame interprets every hand of a frame in detection order.
// When several hands emit a sample for the same role, the last one wins.
func (i *Interpreter) InterpretFrame(hands []detector.HandLandmarks, screen Screen) Frame {
	frame := Frame{Hands: len(hands)}

	for idx := range hands {
		sig, ok := i.Interpret(&hands[idx], screen)
		if !ok {
			continue
		}
		switch sig.Role {
		case RoleOrientation:
			frame.Orientation = &sig
		case RolePointer:
			frame.Pointer = &sig
		}
	}

	return frame
}
