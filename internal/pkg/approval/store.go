package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Filter narrows List results; zero fields match everything
type Filter struct {
	Status Status
	RunID  string
}

func (f Filter) match(a *Approval) bool {
	return (f.Status == "" || a.Status == f.Status) && (f.RunID == "" || a.RunID == f.RunID)
}

// Store persists approvals. Update only succeeds when the stored status still
// equals expect, so concurrent deciders cannot both win.
type Store interface {
	Create(ctx context.Context, a *Approval) error
	Get(ctx context.Context, id string) (*Approval, error)
	Update(ctx context.Context, a *Approval, expect Status) error
	List(ctx context.Context, f Filter) ([]*Approval, error)
}

// MemoryStore keeps approvals in process
type MemoryStore struct {
	mu        sync.RWMutex
	approvals map[string]*Approval
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{approvals: make(map[string]*Approval)}
}

func (s *MemoryStore) Create(_ context.Context, a *Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.approvals[a.ID]; ok {
		return fmt.Errorf("approval %s already exists", a.ID)
	}
	s.approvals[a.ID] = a.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.approvals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, a *Approval, expect Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.approvals[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	if cur.Status != expect {
		return fmt.Errorf("%w: %s is %s", ErrConflict, a.ID, cur.Status)
	}
	s.approvals[a.ID] = a.clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Approval, 0, len(s.approvals))
	for _, a := range s.approvals {
		if f.match(a) {
			out = append(out, a.clone())
		}
	}
	sortApprovals(out)
	return out, nil
}

func sortApprovals(list []*Approval) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].RequestedAt.Equal(list[j].RequestedAt) {
			return list[i].RequestedAt.Before(list[j].RequestedAt)
		}
		return list[i].ID < list[j].ID
	})
}
