// Package pyservice locates the Python helper services Orbis talks to over
// pipes: the MediaPipe hand landmarker and the speech recognizer.
package pyservice

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a service script cannot be located.
var ErrNotFound = fmt.Errorf("service script not found")

// HomeDir is the per-user directory searched after the working directory.
const HomeDir = ".orbis"

// Service is a resolved helper script and the interpreter that runs it.
type Service struct {
	Script string
	Python string
}

// Locate resolves the script named name (e.g. "mediapipe_service.py").
// A non-empty override is used as-is if it exists.
func Locate(name, override string) (Service, error) {
	var script string
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return Service{}, fmt.Errorf("%s: %w", override, ErrNotFound)
		}
		script = absOrSelf(override)
	} else {
		script = firstExisting(scriptCandidates(name))
	}
	if script == "" {
		return Service{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	python := firstExisting(venvCandidates())
	if python == "" {
		python = "python3"
	}

	return Service{Script: script, Python: python}, nil
}

func scriptCandidates(name string) []string {
	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
	}
	if execDir := executableDir(); execDir != "" {
		candidates = append(candidates, filepath.Join(execDir, "scripts", name))
	}
	return append(candidates, filepath.Join(os.Getenv("HOME"), HomeDir, "scripts", name))
}

// venvCandidates lists Python interpreters in a virtual environment
// relative to the working directory, the executable, and the home dir.
func venvCandidates() []string {
	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
	}
	if execDir := executableDir(); execDir != "" {
		candidates = append(candidates, filepath.Join(execDir, "venv/bin/python"))
	}
	return append(candidates, filepath.Join(os.Getenv("HOME"), HomeDir, "venv/bin/python"))
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return absOrSelf(path)
		}
	}
	return ""
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
