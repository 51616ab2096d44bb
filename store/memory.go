package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Used by tests and as a fallback when running
// without a database (identifiers then survive only for the process lifetime).
type Memory struct {
	mu sync.RWMutex
	m  map[string]IDs
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]IDs)}
}

func (s *Memory) Get(_ context.Context, channelID, source string) (IDs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[Key(channelID, source)], nil
}

func (s *Memory) Set(_ context.Context, channelID, source string, ids IDs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[Key(channelID, source)] = ids
	return nil
}
