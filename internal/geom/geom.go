// Package geom holds the small amount of 2D math shared by the controller.
package geom

import "math"

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// Vec2 is a 2D vector. For rotations X is pitch and Y is yaw, in radians.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lerp returns a(1-t) + bt.
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpVec applies Lerp to both components.
func LerpVec(a, b Vec2, t float64) Vec2 {
	return Vec2{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// WrapAngle maps any angle into [0, 2π).
func WrapAngle(a float64) float64 {
	w := math.Mod(math.Mod(a, TwoPi)+TwoPi, TwoPi)
	// math.Mod of a tiny negative value can round up to exactly 2π.
	if w >= TwoPi {
		return 0
	}
	return w
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
