package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/timeutil"
)

// DefaultRestartBackoff is the delay before restarting a recognizer that
// terminated unexpectedly.
const DefaultRestartBackoff = time.Second

// ListenerConfig holds the collaborators of a Listener.
type ListenerConfig struct {
	Recognizer  Recognizer
	OnUtterance func(text string)
	// OnStatus is told when a recognition session starts and stops.
	OnStatus func(active bool)
	Backoff  time.Duration
	Clock    timeutil.Clock
}

// Listener keeps a Recognizer running for as long as its context lives.
// A session that ends on its own is restarted immediately; one that fails
// or panics is restarted after the backoff, indefinitely.
type Listener struct {
	rec      Recognizer
	onUtter  func(string)
	onStatus func(bool)
	backoff  time.Duration
	clock    timeutil.Clock

	mu       sync.RWMutex
	active   bool
	sessions int
	failures int

	done atomic.Bool
}

// NewListener validates cfg and creates a Listener.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is nil")
	}
	if cfg.OnUtterance == nil {
		return nil, fmt.Errorf("utterance callback is nil")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRestartBackoff
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.OnStatus == nil {
		cfg.OnStatus = func(bool) {}
	}

	return &Listener{
		rec:      cfg.Recognizer,
		onUtter:  cfg.OnUtterance,
		onStatus: cfg.OnStatus,
		backoff:  cfg.Backoff,
		clock:    cfg.Clock,
	}, nil
}

// Run blocks until ctx is cancelled, returning nil, or until the recognizer
// reports ErrUnsupported, returning that error. No callback is delivered
// after Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.done.Store(true)

	for {
		if ctx.Err() != nil {
			return nil
		}

		l.setActive(true)
		err := l.session(ctx)
		l.setActive(false)

		if ctx.Err() != nil {
			return nil
		}

		switch {
		case errors.Is(err, ErrUnsupported):
			log.Warn("speech recognition unavailable, voice control disabled", "err", err)
			return err

		case err != nil:
			l.mu.Lock()
			l.failures++
			l.mu.Unlock()
			log.Warn("speech recognizer stopped unexpectedly", "err", err, "retry_in", l.backoff)

			select {
			case <-ctx.Done():
				return nil
			case <-l.clock.After(l.backoff):
			}

		default:
			log.Debug("speech session ended, restarting")
		}
	}
}

func (l *Listener) session(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()

	l.mu.Lock()
	l.sessions++
	l.mu.Unlock()

	return l.rec.Run(ctx, func(text string) {
		if ctx.Err() != nil || l.done.Load() {
			return
		}
		l.onUtter(text)
	})
}

func (l *Listener) setActive(active bool) {
	l.mu.Lock()
	l.active = active
	l.mu.Unlock()
	l.onStatus(active)
}

// Active reports whether a recognition session is running.
func (l *Listener) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Sessions returns how many sessions have been started.
func (l *Listener) Sessions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessions
}

// Failures returns how many sessions terminated unexpectedly.
func (l *Listener) Failures() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failures
}
