// Package config loads the Orbis tuning file. Every threshold and gain used
// by the controller is a field here with a documented default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultConfigPath is where cmd/orbis looks for a tuning file when no
// -config flag is given. A missing file means defaults.
const DefaultConfigPath = "config/tuning.json"

// Duration is a time.Duration that marshals as a string like "3000ms".
type Duration time.Duration

// MarshalJSON encodes the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a Go duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Tuning holds all tunable parameters of the fusion controller.
type Tuning struct {
	// Gesture interpretation
	OrientationSplit float64 `json:"orientation_split"` // wrist x above this is the orientation hand
	YawGain          float64 `json:"yaw_gain"`          // radians per unit of horizontal deviation
	PitchGain        float64 `json:"pitch_gain"`        // radians per unit of vertical deviation
	ScaleGain        float64 `json:"scale_gain"`        // scale per unit of pinch distance
	MinScale         float64 `json:"min_scale"`
	MaxScale         float64 `json:"max_scale"`
	PinchThreshold   float64 `json:"pinch_threshold"` // pointer pinch below this distance

	// Arbitration
	SuppressionWindow Duration `json:"suppression_window"`

	// Smoothing
	VoiceAlpha     float64  `json:"voice_alpha"`
	GestureAlpha   float64  `json:"gesture_alpha"`
	ScaleBeta      float64  `json:"scale_beta"`
	ReferenceFrame Duration `json:"reference_frame"` // zero disables frame-rate compensation

	// Speech
	RestartBackoff Duration `json:"restart_backoff"`

	// Frame loop
	FrameRate       int     `json:"frame_rate"`
	MotionThreshold float64 `json:"motion_threshold"` // percent of changed pixels; zero disables the gate
	ScreenWidth     float64 `json:"screen_width"`
	ScreenHeight    float64 `json:"screen_height"`
}

// DefaultTuning returns the documented defaults.
func DefaultTuning() Tuning {
	return Tuning{
		OrientationSplit: 0.5,
		YawGain:          8,
		PitchGain:        4,
		ScaleGain:        8,
		MinScale:         0.5,
		MaxScale:         2.5,
		PinchThreshold:   0.05,

		SuppressionWindow: Duration(3000 * time.Millisecond),

		VoiceAlpha:   0.05,
		GestureAlpha: 0.1,
		ScaleBeta:    0.1,

		RestartBackoff: Duration(time.Second),

		FrameRate:    60,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
	}
}

// LoadTuning reads a JSON tuning file. Fields absent from the file keep
// their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// LoadTuningOrDefault behaves like LoadTuning but treats a missing file as
// an empty one.
func LoadTuningOrDefault(path string) (Tuning, error) {
	t, err := LoadTuning(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultTuning(), nil
	}
	return t, err
}

// Validate checks that every parameter is in a usable range.
func (t Tuning) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(t.OrientationSplit >= 0 && t.OrientationSplit <= 1, "orientation_split %v outside [0,1]", t.OrientationSplit)
	check(t.MinScale > 0, "min_scale %v must be positive", t.MinScale)
	check(t.MaxScale >= t.MinScale, "max_scale %v below min_scale %v", t.MaxScale, t.MinScale)
	check(t.PinchThreshold > 0, "pinch_threshold %v must be positive", t.PinchThreshold)
	check(t.SuppressionWindow >= 0, "suppression_window %v is negative", t.SuppressionWindow.Std())
	check(inUnit(t.VoiceAlpha), "voice_alpha %v outside (0,1]", t.VoiceAlpha)
	check(inUnit(t.GestureAlpha), "gesture_alpha %v outside (0,1]", t.GestureAlpha)
	check(inUnit(t.ScaleBeta), "scale_beta %v outside (0,1]", t.ScaleBeta)
	check(t.ReferenceFrame >= 0, "reference_frame %v is negative", t.ReferenceFrame.Std())
	check(t.RestartBackoff >= 0, "restart_backoff %v is negative", t.RestartBackoff.Std())
	check(t.FrameRate > 0, "frame_rate %d must be positive", t.FrameRate)
	check(t.MotionThreshold >= 0, "motion_threshold %v is negative", t.MotionThreshold)
	check(t.ScreenWidth > 0 && t.ScreenHeight > 0, "screen size %vx%v must be positive", t.ScreenWidth, t.ScreenHeight)

	return errors.Join(errs...)
}

// FrameInterval is the period of the frame loop.
func (t Tuning) FrameInterval() time.Duration {
	return time.Second / time.Duration(t.FrameRate)
}

func inUnit(v float64) bool {
	return v > 0 && v <= 1
}
