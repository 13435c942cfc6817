package voice

import (
	"context"
	"sync"
)

// Session scripts one Run of a MockRecognizer.
type Session struct {
	Utterances []string
	Err        error
	Panic      any
	// Block keeps the session open until the context is cancelled.
	Block bool
}

// MockRecognizer plays back scripted sessions. Once the script is
// exhausted every further session blocks until cancellation.
type MockRecognizer struct {
	mu       sync.Mutex
	sessions []Session
	runs     int
}

// NewMockRecognizer creates a MockRecognizer with the given sessions.
func NewMockRecognizer(sessions ...Session) *MockRecognizer {
	return &MockRecognizer{sessions: sessions}
}

// Run plays the next scripted session.
func (m *MockRecognizer) Run(ctx context.Context, deliver func(text string)) error {
	m.mu.Lock()
	idx := m.runs
	m.runs++
	m.mu.Unlock()

	if idx >= len(m.sessions) {
		<-ctx.Done()
		return nil
	}

	s := m.sessions[idx]
	for _, u := range s.Utterances {
		deliver(u)
	}
	if s.Panic != nil {
		panic(s.Panic)
	}
	if s.Block {
		<-ctx.Done()
		return nil
	}
	return s.Err
}

// Runs returns how many sessions have been started.
func (m *MockRecognizer) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}
