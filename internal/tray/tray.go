// Package tray shows Orbis status in the system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Status is what the tray displays.
type Status struct {
	VoiceActive bool
	Sector      string
	Message     string
}

// Tray is the system tray menu. Status updates made before Run are applied
// once the menu exists.
type Tray struct {
	mu       sync.RWMutex
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	status   Status

	menuToggle *systray.MenuItem
	menuVoice  *systray.MenuItem
	menuSector *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray with input enabled.
func New() *Tray {
	return &Tray{enabled: true, status: Status{Sector: "-"}}
}

// OnToggle sets the callback for the enable/disable item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open Globe" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is called and must run on the
// main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Orbis")
	systray.SetTooltip("Orbis globe controller")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand and voice input")
	systray.AddSeparator()
	t.menuVoice = systray.AddMenuItem(voiceTitle(t.status.VoiceActive), "Speech recognition state")
	t.menuVoice.Disable()
	t.menuSector = systray.AddMenuItem(sectorTitle(t.status.Sector), "Region facing the viewer")
	t.menuSector.Disable()
	t.menuStatus = systray.AddMenuItem(t.status.Message, "Last voice command or hand count")
	t.menuStatus.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open Globe...", "Open the globe in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Orbis")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetEnabled sets the toggle state without invoking the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the toggle state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Update refreshes the status items. Only changed items are redrawn.
func (t *Tray) Update(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.status
	t.status = s

	if t.menuVoice != nil && s.VoiceActive != prev.VoiceActive {
		t.menuVoice.SetTitle(voiceTitle(s.VoiceActive))
	}
	if t.menuSector != nil && s.Sector != prev.Sector {
		t.menuSector.SetTitle(sectorTitle(s.Sector))
	}
	if t.menuStatus != nil && s.Message != prev.Message {
		t.menuStatus.SetTitle(s.Message)
	}
}

// Status returns the last displayed status.
func (t *Tray) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func voiceTitle(active bool) string {
	if active {
		return "Voice: on"
	}
	return "Voice: off"
}

func sectorTitle(name string) string {
	return "Sector: " + name
}
