// Package smoother eases the displayed globe state toward the arbitrated
// target a fixed fraction per frame.
package smoother

import (
	"math"
	"time"

	"github.com/ayusman/orbis/internal/fusion"
	"github.com/ayusman/orbis/internal/geom"
)

// State is the displayed orientation. Rotation.Y is continuous; wrap it
// with geom.WrapAngle where a [0, 2π) value is needed.
type State struct {
	Rotation geom.Vec2 `json:"rotation"`
	Scale    float64   `json:"scale"`
}

// Config holds the interpolation factors.
type Config struct {
	VoiceAlpha   float64
	GestureAlpha float64
	Beta         float64
	MinScale     float64
	MaxScale     float64
	// ReferenceFrame is the frame period the factors were tuned for. When
	// set, factors are rescaled to the actual frame duration.
	ReferenceFrame time.Duration
}

// DefaultConfig returns the standard factors with compensation disabled.
func DefaultConfig() Config {
	return Config{
		VoiceAlpha:   0.05,
		GestureAlpha: 0.1,
		Beta:         0.1,
		MinScale:     0.5,
		MaxScale:     2.5,
	}
}

// Smoother owns the displayed State.
type Smoother struct {
	config Config
	state  State
}

// New creates a Smoother at rest: zero rotation, unit scale.
func New(config Config) *Smoother {
	return &Smoother{config: config, state: State{Scale: 1}}
}

// Step advances one frame toward d. It runs every frame whether or not any
// input arrived.
func (s *Smoother) Step(d fusion.Decision, dt time.Duration) State {
	alpha := s.config.GestureAlpha
	if d.Source == fusion.SourceVoice {
		alpha = s.config.VoiceAlpha
	}
	alpha = s.factor(alpha, dt)
	beta := s.factor(s.config.Beta, dt)

	s.state.Rotation = geom.LerpVec(s.state.Rotation, d.Rotation, alpha)
	target := geom.Clamp(d.Scale, s.config.MinScale, s.config.MaxScale)
	s.state.Scale = geom.Clamp(geom.Lerp(s.state.Scale, target, beta), s.config.MinScale, s.config.MaxScale)
	return s.state
}

// State returns the current displayed state.
func (s *Smoother) State() State {
	return s.state
}

func (s *Smoother) factor(f float64, dt time.Duration) float64 {
	ref := s.config.ReferenceFrame
	if ref <= 0 || dt <= 0 {
		return f
	}
	return 1 - math.Pow(1-f, float64(dt)/float64(ref))
}
