package session

import (
	"context"
	"sync"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
)

// MemoryStore keeps state in process memory. It does not survive restarts
// and is meant for tests and single-instance development.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]dialogue.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]dialogue.State)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (dialogue.State, error) {
	if err := ctx.Err(); err != nil {
		return dialogue.State{}, err
	}
	m.mu.RLock()
	st, ok := m.states[key]
	m.mu.RUnlock()
	if !ok {
		return dialogue.Initial(), nil
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, st dialogue.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	cp := st.Clone()
	m.mu.Lock()
	m.states[key] = cp
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions have stored state.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
