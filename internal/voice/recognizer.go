package voice

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by a Recognizer that cannot run on this host.
// The listener disables the voice channel when it sees it.
var ErrUnsupported = errors.New("speech recognition unsupported")

// Recognizer is an external speech-to-text stream.
type Recognizer interface {
	// Run runs one recognition session, calling deliver for every final
	// transcript. It returns nil when the session ends on its own,
	// ErrUnsupported when recognition is unavailable, and any other error
	// when the session terminated unexpectedly. Run must return promptly
	// once ctx is cancelled.
	Run(ctx context.Context, deliver func(text string)) error
}
