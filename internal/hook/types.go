// Package hook runs external executables when the globe changes sector or a
// voice command is recognized.
package hook

import "time"

// Event types a hook can subscribe to.
const (
	EventSector  = "sector"
	EventCommand = "command"
)

// Manifest describes a hook's metadata and the events it wants.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Wants reports whether the hook subscribed to eventType. An empty list
// subscribes to everything.
func (m Manifest) Wants(eventType string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Event is written to a hook's stdin as JSON.
type Event struct {
	Type    string    `json:"type"`
	Sector  string    `json:"sector,omitempty"`
	From    string    `json:"from,omitempty"`
	Command string    `json:"command,omitempty"`
	Text    string    `json:"text,omitempty"`
	Time    time.Time `json:"time"`
}

// Response is what a hook prints to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
