package storage

import (
	"context"
	"sync"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

// Memory is a process-local Provider. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	coll   *collection
	seeded map[string]struct{}
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	c, _ := newCollection(nil)
	return &Memory{coll: c, seeded: make(map[string]struct{})}
}

func (m *Memory) Insert(_ context.Context, n models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coll.insert(n)
}

func (m *Memory) Get(_ context.Context, id string) (models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.coll.get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

func (m *Memory) Replace(_ context.Context, n models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.coll.replace(n) {
		return apperr.ErrNotFound
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coll.remove(id)
	return nil
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coll.byOwner(ownerID), nil
}

func (m *Memory) MarkSeeded(_ context.Context, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seeded[ownerID]; ok {
		return false, nil
	}
	m.seeded[ownerID] = struct{}{}
	return true, nil
}

func (m *Memory) Close() error { return nil }
