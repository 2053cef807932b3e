package project

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects: make(map[string]*Project),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[p.ID]; exists {
		return ErrAlreadyExists
	}
	stored := *p
	r.projects[p.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.projects[id]
	if !exists {
		return nil, ErrNotFound
	}
	found := *p
	return &found, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var projects []*Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			found := *p
			projects = append(projects, &found)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Timestamp == projects[j].Timestamp {
			return projects[i].ID > projects[j].ID
		}
		return projects[i].Timestamp > projects[j].Timestamp
	})
	return projects, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[id]; !exists {
		return ErrNotFound
	}
	delete(r.projects, id)
	return nil
}
