package core

import (
	"context"
	"sync"
)

// MemoryStateStore keeps the encoded state in process. It is the store used
// when no persistent store is configured.
type MemoryStateStore struct {
	mu      sync.RWMutex
	codec   StateCodec
	payload []byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{codec: JSONStateCodec{}}
}

func (s *MemoryStateStore) Load(_ context.Context) (SessionState, bool, error) {
	if s == nil {
		return SessionState{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.payload) == 0 {
		return SessionState{}, false, nil
	}
	state, err := s.codec.Decode(s.payload)
	if err != nil {
		return SessionState{}, false, err
	}
	return state, true, nil
}

func (s *MemoryStateStore) Save(_ context.Context, state SessionState) error {
	if s == nil {
		return nil
	}
	encoded, err := s.codec.Encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = encoded
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = nil
	return nil
}

// Snapshot returns the last encoded payload.
func (s *MemoryStateStore) Snapshot() []byte {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.payload...)
}
