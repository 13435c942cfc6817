// Package voice turns recognized speech into orientation targets and keeps
// an external speech recognizer running.
package voice

import (
	"time"

	"github.com/ayusman/orbis/internal/geom"
)

// Command binds a set of keywords to a fixed target rotation.
type Command struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Keywords []string  `json:"keywords"`
	Rotation geom.Vec2 `json:"rotation"`
}

// Target is the pending voice-driven orientation. A new match replaces it
// wholesale.
type Target struct {
	Rotation   geom.Vec2
	ReceivedAt time.Time
	Command    string
}

// DefaultCommands returns the built-in table in match order. Each entry
// accepts English and Chinese keywords.
func DefaultCommands() []Command {
	return []Command{
		{ID: "africa", Name: "Africa", Keywords: []string{"africa", "非洲"}, Rotation: geom.Vec2{X: 0, Y: 0.5}},
		{ID: "asia", Name: "Asia", Keywords: []string{"asia", "china", "亚洲", "中国"}, Rotation: geom.Vec2{X: 0.2, Y: 2.0}},
		{ID: "americas", Name: "Americas", Keywords: []string{"america", "usa", "美洲", "美国"}, Rotation: geom.Vec2{X: 0, Y: 4.8}},
		{ID: "europe", Name: "Europe", Keywords: []string{"europe", "欧洲"}, Rotation: geom.Vec2{X: 0.3, Y: 5.8}},
		{ID: "reset", Name: "Reset", Keywords: []string{"reset", "stop", "重置"}, Rotation: geom.Vec2{X: 0, Y: 0}},
	}
}
