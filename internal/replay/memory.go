package replay

import (
	"errors"
	"sync"

	"github.com/gridclash/arena/internal/engine"
)

// MemoryRecorder keeps the whole stream in memory. Used by tests and by
// callers that post-process a match before storing it.
type MemoryRecorder struct {
	mu     sync.Mutex
	replay Replay
	closed bool
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) WriteHeader(h engine.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replay.Header = h
	return nil
}

func (m *MemoryRecorder) WriteRound(rr engine.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replay.Rounds = append(m.replay.Rounds, rr)
	return nil
}

func (m *MemoryRecorder) WriteFooter(f engine.Footer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replay.Footer = &f
	return nil
}

func (m *MemoryRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryRecorder) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Replay returns a copy of what has been recorded so far.
func (m *MemoryRecorder) Replay() *Replay {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.replay
	r.Rounds = append([]engine.RoundRecord(nil), m.replay.Rounds...)
	return &r
}

// multi fans every write out to several recorders.
type multi []engine.Recorder

// Multi returns a recorder that writes to each of rs in order and stops at
// the first failure. Close closes all of them.
func Multi(rs ...engine.Recorder) engine.Recorder {
	return multi(rs)
}

func (m multi) WriteHeader(h engine.Header) error {
	for _, r := range m {
		if err := r.WriteHeader(h); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) WriteRound(rr engine.RoundRecord) error {
	for _, r := range m {
		if err := r.WriteRound(rr); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) WriteFooter(f engine.Footer) error {
	for _, r := range m {
		if err := r.WriteFooter(f); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
