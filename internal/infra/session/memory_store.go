package session

import (
	"context"
	"sync"

	repo "storefront/internal/repository"
)

// プロセス内のストア（開発・テスト用）
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[sessionID][key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID string, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.data[sessionID]
	if !ok {
		m = make(map[string]string)
		s.data[sessionID] = m
	}
	m[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[sessionID], key)
	return nil
}
