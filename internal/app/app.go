// Package app wires the camera, the hand detector, the speech listener and
// the fusion controller into the running Orbis process.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/orbis/internal/capture"
	"github.com/ayusman/orbis/internal/config"
	"github.com/ayusman/orbis/internal/controller"
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/gesture"
	"github.com/ayusman/orbis/internal/hook"
	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/timeutil"
	"github.com/ayusman/orbis/internal/tray"
	"github.com/ayusman/orbis/internal/voice"
)

// Errors returned by Start.
var (
	ErrAlreadyRunning = errors.New("app already running")
	ErrStopped        = errors.New("app stopped")
)

// Broadcaster publishes snapshots to clients.
type Broadcaster interface {
	Broadcast(v any) error
}

// StatusDisplay shows the controller state outside the browser.
type StatusDisplay interface {
	Update(tray.Status)
}

// Config holds the collaborators of an App. Camera and Detector are
// required; everything else is optional.
type Config struct {
	Tuning     config.Tuning
	Camera     capture.Camera
	Detector   detector.Detector
	Recognizer voice.Recognizer
	Store      *store.Store
	Preview    *capture.Preview
	Hub        Broadcaster
	Display    StatusDisplay
	Hooks      *hook.Dispatcher
	Clock      timeutil.Clock
}

// App is the running Orbis pipeline.
type App struct {
	config     Config
	clock      timeutil.Clock
	controller *controller.Controller
	gate       *capture.Gate
	screen     gesture.Screen

	mu       sync.RWMutex
	enabled  bool
	running  bool
	stopped  bool
	stopCh   chan struct{}
	cancel   context.CancelFunc
	listener *voice.Listener
	wg       sync.WaitGroup
}

// New creates an App. When a store is configured the voice command table is
// seeded on first run and loaded from it, and the enabled flag is restored.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil {
		return nil, fmt.Errorf("camera is nil")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is nil")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	ctrlCfg := controller.ConfigFromTuning(cfg.Tuning)
	ctrlCfg.Clock = cfg.Clock

	enabled := true
	if cfg.Store != nil {
		commands, err := loadCommands(cfg.Store)
		if err != nil {
			return nil, err
		}
		if len(commands) > 0 {
			ctrlCfg.Commands = commands
		}
		enabled = cfg.Store.Settings().Bool(store.SettingEnabled, true)
	}

	ctrl, err := controller.New(ctrlCfg)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	a := &App{
		config:     cfg,
		clock:      cfg.Clock,
		controller: ctrl,
		gate:       capture.NewGate(cfg.Tuning.MotionThreshold, capture.DefaultHold, cfg.Clock),
		screen:     gesture.Screen{Width: cfg.Tuning.ScreenWidth, Height: cfg.Tuning.ScreenHeight},
		enabled:    enabled,
	}
	ctrl.OnSectorChange(a.onSectorChange)
	return a, nil
}

func loadCommands(s *store.Store) ([]voice.Command, error) {
	repo := s.Commands()
	seeded, err := repo.Seed(voice.DefaultCommands())
	if err != nil {
		return nil, fmt.Errorf("seed voice commands: %w", err)
	}
	if seeded {
		log.Info("seeded default voice commands")
	}
	commands, err := repo.VoiceCommands()
	if err != nil {
		return nil, fmt.Errorf("load voice commands: %w", err)
	}
	return commands, nil
}

// Controller returns the fusion controller.
func (a *App) Controller() *controller.Controller {
	return a.controller
}

// Snapshot returns the latest published state.
func (a *App) Snapshot() controller.Snapshot {
	return a.controller.Snapshot()
}

// SetCommands replaces the voice command table.
func (a *App) SetCommands(commands []voice.Command) error {
	return a.controller.SetCommands(commands)
}

// SetEnabled turns hand and voice input on or off. The choice is persisted
// when a store is configured.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	log.Info("input toggled", "enabled", enabled)
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
			log.Warn("failed to persist enabled flag", "err", err)
		}
	}
}

// IsEnabled reports whether input is processed.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// HandleUtterance interprets one final transcript and records it. It is
// ignored while input is disabled.
func (a *App) HandleUtterance(text, source string) (voice.Command, bool) {
	if !a.IsEnabled() {
		log.Debug("utterance ignored while disabled", "text", text)
		return voice.Command{}, false
	}

	cmd, ok := a.controller.OnUtterance(text)
	log.Info("utterance", "text", text, "source", source, "matched", ok, "command", cmd.Name)

	if a.config.Store != nil {
		u := &store.Utterance{Text: text, Matched: ok, Source: source, ReceivedAt: a.clock.Now()}
		if ok {
			u.CommandID = cmd.ID
			u.CommandName = cmd.Name
		}
		if err := a.config.Store.Utterances().Record(u); err != nil {
			log.Warn("failed to record utterance", "err", err)
		}
	}

	if ok && a.config.Hooks != nil {
		a.config.Hooks.Fire(hook.Event{Type: hook.EventCommand, Command: cmd.Name, Text: text, Time: a.clock.Now()})
	}
	return cmd, ok
}

// Start opens the camera and starts the frame loop and, if a recognizer is
// configured, the speech listener. ctx bounds the listener.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.running {
		return ErrAlreadyRunning
	}

	var listener *voice.Listener
	if a.config.Recognizer != nil {
		var err error
		listener, err = voice.NewListener(voice.ListenerConfig{
			Recognizer: a.config.Recognizer,
			OnUtterance: func(text string) {
				a.HandleUtterance(text, store.SourceSpeech)
			},
			OnStatus: a.controller.SetVoiceActive,
			Backoff:  a.config.Tuning.RestartBackoff.Std(),
			Clock:    a.clock,
		})
		if err != nil {
			return fmt.Errorf("create speech listener: %w", err)
		}
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.running = true

	a.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer a.wg.Done()
		a.runPipeline(stop)
	}(a.stopCh)

	if listener != nil {
		lctx, cancel := context.WithCancel(ctx)
		a.cancel = cancel
		a.listener = listener

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := listener.Run(lctx); errors.Is(err, voice.ErrUnsupported) {
				a.controller.SetVoiceActive(false)
			}
		}()
	} else {
		log.Info("no speech recognizer configured, voice control disabled")
	}

	log.Info("pipeline started", "fps", a.config.Tuning.FrameRate, "motion_gate", a.gate.Enabled())
	return nil
}

// Stop stops the frame loop and listener, releases the camera and detector
// and tears the controller down. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	wasRunning := a.running
	a.running = false
	if wasRunning {
		close(a.stopCh)
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.wg.Wait()

	if wasRunning {
		if err := a.config.Camera.Close(); err != nil {
			log.Warn("failed to close camera", "err", err)
		}
	}
	a.gate.Close()
	if err := a.config.Detector.Close(); err != nil {
		log.Warn("failed to close detector", "err", err)
	}
	a.controller.Teardown()
	log.Info("pipeline stopped")
}

// Running reports whether the frame loop is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// VoiceSessions returns how many speech sessions have been started.
func (a *App) VoiceSessions() int {
	a.mu.RLock()
	l := a.listener
	a.mu.RUnlock()
	if l == nil {
		return 0
	}
	return l.Sessions()
}

func (a *App) onSectorChange(from, to string) {
	log.Info("sector changed", "from", from, "to", to)
	if a.config.Hooks != nil {
		a.config.Hooks.Fire(hook.Event{Type: hook.EventSector, From: from, Sector: to, Time: a.clock.Now()})
	}
}
