package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. It does not survive a
// restart and is meant for tests and short-lived tools.
type MemoryStore struct {
	mu  sync.RWMutex
	rec *Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if rec.Credential == "" {
		return ErrEmptyCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	s.rec = &cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return Record{}, false, nil
	}
	return *s.rec, true, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}
