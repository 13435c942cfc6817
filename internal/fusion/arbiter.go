// Package fusion decides, once per frame, which input channel steers the
// globe's orientation.
package fusion

import (
	"time"

	"github.com/ayusman/orbis/internal/geom"
	"github.com/ayusman/orbis/internal/gesture"
	"github.com/ayusman/orbis/internal/voice"
)

// DefaultSuppressionWindow is how long a voice command overrides gesture.
const DefaultSuppressionWindow = 3000 * time.Millisecond

// Source identifies which channel produced the current rotation target.
type Source int

const (
	// SourceNone means no input has set a target yet.
	SourceNone Source = iota
	// SourceGesture means the orientation hand set the target.
	SourceGesture
	// SourceVoice means a voice command set the target and its window is
	// still open.
	SourceVoice
	// SourceRetained means a voice target outlived its window with no hand
	// replacing it. It is smoothed like a gesture target.
	SourceRetained
)

func (s Source) String() string {
	switch s {
	case SourceGesture:
		return "gesture"
	case SourceVoice:
		return "voice"
	case SourceRetained:
		return "retained"
	default:
		return "none"
	}
}

// Decision is the authoritative target for one frame.
type Decision struct {
	Rotation geom.Vec2
	Scale    float64
	Source   Source
	// Suppressed is true when a gesture rotation was discarded this frame.
	Suppressed bool
}

// Arbiter holds the last authoritative target. Targets never decay; a frame
// without input keeps the previous one.
type Arbiter struct {
	window  time.Duration
	current Decision
}

// NewArbiter creates an Arbiter whose initial target is initial.
func NewArbiter(window time.Duration, initial Decision) *Arbiter {
	return &Arbiter{window: window, current: initial}
}

// Window returns the suppression window.
func (a *Arbiter) Window() time.Duration {
	return a.window
}

// Suppressing reports whether target still overrides gesture at now.
func (a *Arbiter) Suppressing(now time.Time, target *voice.Target) bool {
	return target != nil && now.Sub(target.ReceivedAt) < a.window
}

// Decide picks the frame's target. Within the suppression window the voice
// rotation wins outright and the gesture rotation is dropped. Otherwise the
// gesture rotation is used if present, and an expired voice target is
// kept as SourceRetained. Scale follows the gesture whenever
// one is present, regardless of suppression.
func (a *Arbiter) Decide(now time.Time, orientation *gesture.Signal, target *voice.Target) Decision {
	next := a.current
	next.Suppressed = false

	hasRotation := orientation != nil && orientation.Rotation != nil

	switch {
	case a.Suppressing(now, target):
		next.Rotation = target.Rotation
		next.Source = SourceVoice
		next.Suppressed = hasRotation
	case hasRotation:
		next.Rotation = *orientation.Rotation
		next.Source = SourceGesture
	case next.Source == SourceVoice:
		next.Source = SourceRetained
	}

	if orientation != nil && orientation.Scale != nil {
		next.Scale = *orientation.Scale
	}

	a.current = next
	return next
}

// Current returns the last decision without advancing.
func (a *Arbiter) Current() Decision {
	return a.current
}
