// Package sector names the region of the globe facing the viewer.
package sector

import (
	"errors"
	"fmt"

	"github.com/ayusman/orbis/internal/geom"
)

// Sector is a half-open yaw range [Min, Max) in radians.
type Sector struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Contains reports whether a falls inside the sector.
func (s Sector) Contains(a float64) bool {
	return a >= s.Min && a < s.Max
}

// DefaultSectors returns the standard ordered partition.
// The last range stops at 6.28, leaving a sliver below 2π unmatched.
func DefaultSectors() []Sector {
	return []Sector{
		{Name: "Africa", Min: 0, Max: 1.2},
		{Name: "Asia", Min: 1.2, Max: 2.5},
		{Name: "Pacific", Min: 2.5, Max: 4.0},
		{Name: "Americas", Min: 4.0, Max: 5.5},
		{Name: "Europe", Min: 5.5, Max: 6.28},
	}
}

// Validate checks that the table is non-empty, starts at 0, and is
// contiguous and ordered.
func Validate(sectors []Sector) error {
	if len(sectors) == 0 {
		return errors.New("sector table is empty")
	}
	if sectors[0].Min != 0 {
		return fmt.Errorf("first sector %q starts at %v, want 0", sectors[0].Name, sectors[0].Min)
	}
	for i, s := range sectors {
		if s.Name == "" {
			return fmt.Errorf("sector %d has no name", i)
		}
		if s.Max <= s.Min {
			return fmt.Errorf("sector %q is empty: [%v, %v)", s.Name, s.Min, s.Max)
		}
		if i > 0 && s.Min != sectors[i-1].Max {
			return fmt.Errorf("sector %q starts at %v, previous ends at %v", s.Name, s.Min, sectors[i-1].Max)
		}
	}
	if last := sectors[len(sectors)-1]; last.Max > geom.TwoPi {
		return fmt.Errorf("last sector %q ends past 2π", last.Name)
	}
	return nil
}

// Reflect maps a rotation yaw to the longitude angle facing the viewer.
// Turning the globe by +y brings the region at 2π−y to the front.
func Reflect(y float64) float64 {
	return geom.TwoPi - geom.WrapAngle(y)
}

// Classifier tracks the current sector. It is not safe for concurrent use.
type Classifier struct {
	sectors []Sector
	current string
}

// NewClassifier creates a Classifier whose initial sector is the first
// entry of sectors. It returns an error if the table is invalid.
func NewClassifier(sectors []Sector) (*Classifier, error) {
	if err := Validate(sectors); err != nil {
		return nil, err
	}
	cp := append([]Sector(nil), sectors...)
	return &Classifier{sectors: cp, current: cp[0].Name}, nil
}

// Classify updates the current sector from yaw y and reports whether it
// changed. An angle in no range keeps the previous sector.
func (c *Classifier) Classify(y float64) (string, bool) {
	a := Reflect(y)
	for _, s := range c.sectors {
		if s.Contains(a) {
			changed := s.Name != c.current
			c.current = s.Name
			return s.Name, changed
		}
	}
	return c.current, false
}

// Current returns the current sector name.
func (c *Classifier) Current() string {
	return c.current
}

// Sectors returns a copy of the table.
func (c *Classifier) Sectors() []Sector {
	return append([]Sector(nil), c.sectors...)
}
