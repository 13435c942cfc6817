package voice

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/ayusman/orbis/internal/timeutil"
)

// Interpreter matches utterances against an ordered command table.
type Interpreter struct {
	mu       sync.RWMutex
	commands []Command
	clock    timeutil.Clock
}

// NewInterpreter creates an Interpreter. A nil clock uses the real clock.
func NewInterpreter(commands []Command, clock timeutil.Clock) *Interpreter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	i := &Interpreter{clock: clock}
	i.SetCommands(commands)
	return i
}

// SetCommands replaces the command table. Keywords are normalized once here.
func (i *Interpreter) SetCommands(commands []Command) {
	table := make([]Command, len(commands))
	for n, c := range commands {
		c.Keywords = normalizeAll(c.Keywords)
		table[n] = c
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.commands = table
}

// Commands returns a copy of the active table.
func (i *Interpreter) Commands() []Command {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Command, len(i.commands))
	copy(out, i.commands)
	return out
}

// Interpret matches text against the table. The first command, in table
// order, with any keyword contained in the text wins. On a match the target
// is stamped with the current time.
func (i *Interpreter) Interpret(text string) (Target, Command, bool) {
	utterance := Normalize(text)
	if utterance == "" {
		return Target{}, Command{}, false
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, c := range i.commands {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(utterance, kw) {
				return Target{
					Rotation:   c.Rotation,
					ReceivedAt: i.clock.Now(),
					Command:    c.Name,
				}, c, true
			}
		}
	}
	return Target{}, Command{}, false
}

// Normalize folds width variants, lower-cases and trims text.
func Normalize(text string) string {
	// A Caser is stateful and must not be shared between goroutines.
	lower := cases.Lower(language.Und)
	return strings.TrimSpace(lower.String(norm.NFKC.String(text)))
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := Normalize(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}
