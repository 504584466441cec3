package session

import (
	"context"
	"sync"
)

// MemoryRepository keeps the session in process memory. Used in tests and
// when the agent runs without a durable store.
type MemoryRepository struct {
	mu   sync.RWMutex
	sess *CloudSession
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (m *MemoryRepository) Load(ctx context.Context) (*CloudSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *MemoryRepository) Save(ctx context.Context, s *CloudSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sess = &cp
	return nil
}

func (m *MemoryRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
