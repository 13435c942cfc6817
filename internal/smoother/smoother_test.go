package smoother

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/orbis/internal/fusion"
	"github.com/ayusman/orbis/internal/geom"
)

func TestSmoother_InitialState(t *testing.T) {
	s := New(DefaultConfig())
	assert.Equal(t, State{Scale: 1}, s.State())
}

func TestSmoother_SingleStep(t *testing.T) {
	tests := []struct {
		name   string
		source fusion.Source
		wantY  float64
	}{
		{"gesture alpha", fusion.SourceGesture, 0.1},
		{"voice alpha", fusion.SourceVoice, 0.05},
		{"no source uses gesture alpha", fusion.SourceNone, 0.1},
		{"expired voice target uses gesture alpha", fusion.SourceRetained, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(DefaultConfig())
			st := s.Step(fusion.Decision{Rotation: geom.Vec2{Y: 1}, Scale: 2, Source: tt.source}, 0)
			assert.InDelta(t, tt.wantY, st.Rotation.Y, 1e-12)
			assert.InDelta(t, 1.1, st.Scale, 1e-12)
		})
	}
}

func TestSmoother_ConvergesWithoutOvershoot(t *testing.T) {
	s := New(DefaultConfig())
	d := fusion.Decision{Rotation: geom.Vec2{X: 0.3, Y: 5.8}, Scale: 2.5, Source: fusion.SourceGesture}

	prevDist := math.Inf(1)
	for i := 0; i < 500; i++ {
		st := s.Step(d, 0)
		assert.LessOrEqual(t, st.Rotation.Y, 5.8)
		assert.LessOrEqual(t, st.Rotation.X, 0.3)
		assert.LessOrEqual(t, st.Scale, 2.5)

		dist := geom.Distance(st.Rotation, d.Rotation)
		assert.Less(t, dist, prevDist)
		prevDist = dist
	}
	assert.InDelta(t, 5.8, s.State().Rotation.Y, 1e-9)
	assert.InDelta(t, 2.5, s.State().Scale, 1e-9)
}

func TestSmoother_HundredEmptyFrames(t *testing.T) {
	s := New(DefaultConfig())
	d := fusion.Decision{Rotation: geom.Vec2{X: 0.3, Y: 5.8}, Scale: 1, Source: fusion.SourceGesture}

	var st State
	for i := 0; i < 100; i++ {
		st = s.Step(d, 16*time.Millisecond)
	}

	// After n frames the remaining distance is (1-α)^n of the original.
	remaining := math.Pow(0.9, 100)
	assert.InDelta(t, 5.8*(1-remaining), st.Rotation.Y, 1e-9)
	assert.InDelta(t, 0.3*(1-remaining), st.Rotation.X, 1e-9)
	assert.Less(t, 5.8-st.Rotation.Y, 0.001)
}

func TestSmoother_ScaleClamped(t *testing.T) {
	s := New(DefaultConfig())
	for i := 0; i < 200; i++ {
		s.Step(fusion.Decision{Scale: 10}, 0)
	}
	assert.InDelta(t, 2.5, s.State().Scale, 1e-9)

	for i := 0; i < 200; i++ {
		s.Step(fusion.Decision{Scale: -3}, 0)
	}
	assert.InDelta(t, 0.5, s.State().Scale, 1e-9)
}

func TestSmoother_FrameRateCompensation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceFrame = time.Second / 60
	d := fusion.Decision{Rotation: geom.Vec2{Y: 1}, Scale: 1, Source: fusion.SourceGesture}

	// One 30 Hz frame covers the same ground as two 60 Hz frames.
	slow := New(cfg)
	slow.Step(d, time.Second/30)

	fast := New(cfg)
	fast.Step(d, time.Second/60)
	fast.Step(d, time.Second/60)

	assert.InDelta(t, fast.State().Rotation.Y, slow.State().Rotation.Y, 1e-9)

	// Zero dt falls back to the per-frame factor.
	zero := New(cfg)
	zero.Step(d, 0)
	assert.InDelta(t, 0.1, zero.State().Rotation.Y, 1e-12)
}
