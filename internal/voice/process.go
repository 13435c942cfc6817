package voice

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/pyservice"
)

// ScriptName is the speech recognizer service script.
const ScriptName = "speech_service.py"

// ProcessConfig configures a ProcessRecognizer.
type ProcessConfig struct {
	// Script overrides the service script search when set.
	Script string
	// Interpreter overrides the Python interpreter when set.
	Interpreter string
	// Language is passed to the service as --lang.
	Language string
}

// ProcessRecognizer runs an external speech service as a child process.
// The service prints one JSON object per line:
//
//	{"transcript": "go to asia", "final": true}
//
// Only final transcripts are delivered. Process exit with status zero is a
// natural session end.
type ProcessRecognizer struct {
	config ProcessConfig
}

// NewProcessRecognizer creates a ProcessRecognizer. Locating the script is
// deferred to Run so a missing service disables voice instead of failing
// startup.
func NewProcessRecognizer(config ProcessConfig) *ProcessRecognizer {
	if config.Language == "" {
		config.Language = "en-US"
	}
	return &ProcessRecognizer{config: config}
}

type transcriptLine struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
	Error      string `json:"error"`
}

// Run starts the service and streams its transcripts until it exits.
func (p *ProcessRecognizer) Run(ctx context.Context, deliver func(text string)) error {
	svc, err := pyservice.Locate(ScriptName, p.config.Script)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if p.config.Interpreter != "" {
		svc.Python = p.config.Interpreter
	}

	args := []string{svc.Script}
	if p.config.Language != "" {
		args = append(args, "--lang", p.config.Language)
	}
	cmd := exec.CommandContext(ctx, svc.Python, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		return fmt.Errorf("start speech service: %w", err)
	}

	var serviceErr string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			log.Debug("ignoring speech service output", "line", scanner.Text())
			continue
		}
		if line.Error != "" {
			serviceErr = line.Error
			continue
		}
		if line.Final && line.Transcript != "" {
			deliver(line.Transcript)
		}
	}

	if err := scanner.Err(); err != nil {
		// Nobody reads stdout any more, so the child could block on write.
		cmd.Process.Kill()
		cmd.Wait()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read speech service output: %w", err)
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if waitErr != nil {
		if serviceErr != "" {
			return fmt.Errorf("speech service: %s: %w", serviceErr, waitErr)
		}
		return fmt.Errorf("speech service: %w", waitErr)
	}
	switch serviceErr {
	case "":
		return nil
	case "unsupported":
		return ErrUnsupported
	default:
		return fmt.Errorf("speech service: %s", serviceErr)
	}
}
