package pairing

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory store used for unit tests and for running
// the agent without a durable backend.
type MemoryRepository struct {
	mu       sync.RWMutex
	servers  map[string]*PairedServer
	entities map[string]*PairedEntity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		servers:  make(map[string]*PairedServer),
		entities: make(map[string]*PairedEntity),
	}
}

func (m *MemoryRepository) UpsertServer(ctx context.Context, s *PairedServer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.servers[s.Key()] = &cp
	return nil
}

func (m *MemoryRepository) Servers(ctx context.Context) (map[string]*PairedServer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*PairedServer, len(m.servers))
	for k, v := range m.servers {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *MemoryRepository) DeleteServer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[id]; !ok {
		return ErrNotFound
	}
	delete(m.servers, id)
	return nil
}

func (m *MemoryRepository) UpsertEntity(ctx context.Context, e *PairedEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entities[e.Key()] = &cp
	return nil
}

func (m *MemoryRepository) Entities(ctx context.Context) (map[string]*PairedEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*PairedEntity, len(m.entities))
	for k, v := range m.entities {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *MemoryRepository) DeleteEntity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return ErrNotFound
	}
	delete(m.entities, id)
	return nil
}
