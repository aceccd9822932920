package script

import (
	"context"
	"sync"

	"results-hotline/internal/locale"
)

// MemoryStore is a simple in-memory script store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scripts: make(map[string]Script)}
}

func key(name string, lang locale.Language) string {
	return name + "|" + string(locale.Resolve(lang))
}

func (s *MemoryStore) Put(sc Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[key(sc.Name, sc.Language)] = sc
}

func (s *MemoryStore) Get(ctx context.Context, name string, lang locale.Language) (Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scripts[key(name, lang)]
	if !ok {
		return Script{}, ErrNotFound
	}
	return sc, nil
}
