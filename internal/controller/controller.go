// Package controller owns the globe's orientation timeline. It combines the
// gesture and voice interpreters, the arbiter, the smoother and the sector
// classifier behind one object with an explicit lifecycle.
package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/orbis/internal/config"
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/fusion"
	"github.com/ayusman/orbis/internal/geom"
	"github.com/ayusman/orbis/internal/gesture"
	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/sector"
	"github.com/ayusman/orbis/internal/smoother"
	"github.com/ayusman/orbis/internal/timeutil"
	"github.com/ayusman/orbis/internal/voice"
)

// ErrTornDown is returned by operations that cannot be ignored silently
// once the controller has been torn down.
var ErrTornDown = errors.New("controller torn down")

// Config wires the controller's parts.
type Config struct {
	Gesture           gesture.Config
	Smoother          smoother.Config
	SuppressionWindow time.Duration
	Sectors           []sector.Sector
	Commands          []voice.Command
	// Clock defaults to the real clock.
	Clock timeutil.Clock
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Gesture:           gesture.DefaultConfig(),
		Smoother:          smoother.DefaultConfig(),
		SuppressionWindow: fusion.DefaultSuppressionWindow,
		Sectors:           sector.DefaultSectors(),
		Commands:          voice.DefaultCommands(),
	}
}

// ConfigFromTuning builds a Config from a tuning file.
func ConfigFromTuning(t config.Tuning) Config {
	cfg := DefaultConfig()
	cfg.Gesture = gesture.Config{
		OrientationSplit: t.OrientationSplit,
		YawGain:          t.YawGain,
		PitchGain:        t.PitchGain,
		ScaleGain:        t.ScaleGain,
		MinScale:         t.MinScale,
		MaxScale:         t.MaxScale,
		PinchThreshold:   t.PinchThreshold,
	}
	cfg.Smoother = smoother.Config{
		VoiceAlpha:     t.VoiceAlpha,
		GestureAlpha:   t.GestureAlpha,
		Beta:           t.ScaleBeta,
		MinScale:       t.MinScale,
		MaxScale:       t.MaxScale,
		ReferenceFrame: t.ReferenceFrame.Std(),
	}
	cfg.SuppressionWindow = t.SuppressionWindow.Std()
	return cfg
}

// Snapshot is the state published after each frame.
type Snapshot struct {
	Frame uint64 `json:"frame"`
	// Rotation is continuous; Yaw is Rotation.Y wrapped into [0, 2π).
	Rotation    geom.Vec2 `json:"rotation"`
	Yaw         float64   `json:"yaw"`
	Scale       float64   `json:"scale"`
	Panel       geom.Vec2 `json:"panel"`
	Sector      string    `json:"sector"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	Suppressing bool      `json:"suppressing"`
	VoiceActive bool      `json:"voice_active"`
	Hands       int       `json:"hands"`
	Time        time.Time `json:"time"`
}

// SectorObserver is told when the facing sector changes.
type SectorObserver func(from, to string)

type voiceStatus struct {
	message string
	at      time.Time
}

// Controller serializes frame ticks and voice events onto one timeline.
// It is safe for concurrent use.
type Controller struct {
	mu         sync.Mutex
	clock      timeutil.Clock
	gestures   *gesture.Interpreter
	commands   *voice.Interpreter
	arbiter    *fusion.Arbiter
	smoother   *smoother.Smoother
	classifier *sector.Classifier

	target      *voice.Target
	status      *voiceStatus
	panel       geom.Vec2
	voiceActive bool
	snapshot    Snapshot
	tornDown    bool

	// obsMu is held while observers run so Teardown can wait them out.
	obsMu     sync.Mutex
	observers []SectorObserver
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.SuppressionWindow < 0 {
		return nil, fmt.Errorf("suppression window %v is negative", cfg.SuppressionWindow)
	}
	classifier, err := sector.NewClassifier(cfg.Sectors)
	if err != nil {
		return nil, fmt.Errorf("sector table: %w", err)
	}

	c := &Controller{
		clock:      cfg.Clock,
		gestures:   gesture.NewInterpreter(cfg.Gesture),
		commands:   voice.NewInterpreter(cfg.Commands, cfg.Clock),
		arbiter:    fusion.NewArbiter(cfg.SuppressionWindow, fusion.Decision{Scale: 1}),
		smoother:   smoother.New(cfg.Smoother),
		classifier: classifier,
	}
	st := c.smoother.State()
	c.snapshot = Snapshot{
		Rotation: st.Rotation,
		Scale:    st.Scale,
		Sector:   classifier.Current(),
		Status:   handStatus(0),
		Source:   fusion.SourceNone.String(),
		Time:     c.clock.Now(),
	}
	return c, nil
}

// OnFrame runs one frame: interpret hands, arbitrate, smooth and classify.
// dt is the time since the previous frame. After Teardown it returns the
// last snapshot unchanged.
func (c *Controller) OnFrame(hands []detector.HandLandmarks, screen gesture.Screen, dt time.Duration) Snapshot {
	c.mu.Lock()
	if c.tornDown {
		snap := c.snapshot
		c.mu.Unlock()
		return snap
	}

	now := c.clock.Now()
	frame := c.gestures.InterpretFrame(hands, screen)

	if frame.Pointer != nil && frame.Pointer.Pointer != nil {
		c.panel = *frame.Pointer.Pointer
	}

	decision := c.arbiter.Decide(now, frame.Orientation, c.target)
	state := c.smoother.Step(decision, dt)

	prev := c.classifier.Current()
	name, changed := c.classifier.Classify(state.Rotation.Y)

	c.snapshot = Snapshot{
		Frame:       c.snapshot.Frame + 1,
		Rotation:    state.Rotation,
		Yaw:         geom.WrapAngle(state.Rotation.Y),
		Scale:       state.Scale,
		Panel:       c.panel,
		Sector:      name,
		Status:      c.statusLocked(now, frame.Hands),
		Source:      decision.Source.String(),
		Suppressing: c.arbiter.Suppressing(now, c.target),
		VoiceActive: c.voiceActive,
		Hands:       frame.Hands,
		Time:        now,
	}
	snap := c.snapshot
	c.mu.Unlock()

	if changed {
		log.Debug("sector changed", "from", prev, "to", name, "frame", snap.Frame)
		c.notify(prev, name)
	}
	return snap
}

// OnUtterance interprets a final transcript. A match replaces the pending
// voice target. Either way the utterance becomes the status message.
// After Teardown it does nothing and reports no match.
func (c *Controller) OnUtterance(text string) (voice.Command, bool) {
	target, cmd, ok := c.commands.Interpret(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return voice.Command{}, false
	}

	now := c.clock.Now()
	if ok {
		c.target = &target
		c.status = &voiceStatus{message: "Voice: " + cmd.Name, at: now}
		log.Info("voice command", "command", cmd.Name, "text", text)
		return cmd, true
	}
	c.status = &voiceStatus{message: fmt.Sprintf("Heard: %q", voice.Normalize(text)), at: now}
	log.Debug("unrecognized utterance", "text", text)
	return voice.Command{}, false
}

// SetVoiceActive records whether the speech channel is running.
func (c *Controller) SetVoiceActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.voiceActive = active
	c.snapshot.VoiceActive = active
}

// SetCommands replaces the voice command table.
func (c *Controller) SetCommands(commands []voice.Command) error {
	c.mu.Lock()
	tornDown := c.tornDown
	c.mu.Unlock()
	if tornDown {
		return ErrTornDown
	}
	c.commands.SetCommands(commands)
	return nil
}

// Commands returns the active voice command table.
func (c *Controller) Commands() []voice.Command {
	return c.commands.Commands()
}

// Snapshot returns the state published by the last frame.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Sectors returns the sector table in use.
func (c *Controller) Sectors() []sector.Sector {
	return c.classifier.Sectors()
}

// OnSectorChange registers fn to be called after a frame that changed the
// facing sector. fn must not call Teardown.
func (c *Controller) OnSectorChange(fn SectorObserver) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

// Teardown stops the controller. Later calls to any entry point are no-ops
// and no observer runs after Teardown returns. It is idempotent.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.target = nil
	c.mu.Unlock()

	// Wait for observers that were already running.
	c.obsMu.Lock()
	c.observers = nil
	c.obsMu.Unlock()
	log.Debug("controller torn down")
}

// TornDown reports whether Teardown has been called.
func (c *Controller) TornDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tornDown
}

func (c *Controller) notify(from, to string) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	if c.TornDown() {
		return
	}
	for _, fn := range c.observers {
		fn(from, to)
	}
}

func (c *Controller) statusLocked(now time.Time, hands int) string {
	if c.status != nil && now.Sub(c.status.at) < c.arbiter.Window() {
		return c.status.message
	}
	return handStatus(hands)
}

func handStatus(n int) string {
	if n == 1 {
		return "1 hand detected"
	}
	return fmt.Sprintf("%d hands detected", n)
}
