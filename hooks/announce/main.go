// Command announce is an Orbis hook that speaks the name of the region the
// globe turns to, using say on macOS and espeak elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Event is the input from the hook executor.
type Event struct {
	Type    string `json:"type"`
	Sector  string `json:"sector"`
	From    string `json:"from"`
	Command string `json:"command"`
}

// Response is the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(fmt.Errorf("decode event: %w", err))
		return
	}

	phrase := phraseFor(ev)
	if phrase == "" {
		writeResponse(nil)
		return
	}
	writeResponse(speak(phrase))
}

func phraseFor(ev Event) string {
	switch ev.Type {
	case "sector":
		if ev.Sector == "" {
			return ""
		}
		return "Now facing " + ev.Sector
	case "command":
		if ev.Command == "" {
			return ""
		}
		return "Turning to " + ev.Command
	default:
		return ""
	}
}

func speak(phrase string) error {
	name := "espeak"
	if runtime.GOOS == "darwin" {
		name = "say"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not installed", name)
	}
	out, err := exec.Command(path, phrase).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(out))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
