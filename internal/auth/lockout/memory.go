package lockout

import (
	"context"
	"sync"
	"time"
)

// entry counts attempts reserved in the current window, settled or not.
type entry struct {
	attempts    int
	windowEnds  time.Time
	lockedUntil time.Time
}

// Memory keeps counters in process. Suitable for a single instance.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemory(policy Policy) (*Memory, error) {
	policy = policy.withDefaults()
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &Memory{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*entry),
	}, nil
}

func (m *Memory) Locked(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	now := m.now()
	m.expireLocked(key, e, now)
	return now.Before(e.lockedUntil), nil
}

func (m *Memory) Attempt(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := m.entryLocked(key, now)
	if now.Before(e.lockedUntil) || e.attempts >= m.policy.MaxFailures {
		return true, nil
	}
	if e.attempts == 0 {
		e.windowEnds = now.Add(m.policy.Window)
	}
	e.attempts++
	return false, nil
}

func (m *Memory) RecordFailure(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := m.entryLocked(key, now)
	if now.Before(e.lockedUntil) {
		return true, nil
	}

	// the window ran out while the attempt was in flight
	if e.attempts == 0 {
		e.attempts = 1
		e.windowEnds = now.Add(m.policy.Window)
	}
	if e.attempts >= m.policy.MaxFailures {
		e.attempts = 0
		e.lockedUntil = now.Add(m.policy.Window)
		return true, nil
	}
	return false, nil
}

func (m *Memory) RecordSuccess(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if m.now().Before(e.lockedUntil) {
		return true, nil
	}
	delete(m.entries, key)
	return false, nil
}

func (m *Memory) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// entryLocked returns the live entry for key, creating it when needed.
// Callers hold m.mu.
func (m *Memory) entryLocked(key string, now time.Time) *entry {
	if e, ok := m.entries[key]; ok {
		m.expireLocked(key, e, now)
	}
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	return e
}

// expireLocked drops a stale failure window and forgets the entry once
// nothing in it is live. Callers hold m.mu.
func (m *Memory) expireLocked(key string, e *entry, now time.Time) {
	if e.attempts > 0 && !now.Before(e.windowEnds) {
		e.attempts = 0
	}
	if e.attempts == 0 && !now.Before(e.lockedUntil) {
		delete(m.entries, key)
	}
}
