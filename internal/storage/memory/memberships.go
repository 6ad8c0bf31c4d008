package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

type membershipsStorage struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]*storage.MembershipPlan
}

func newMembershipsStorage() *membershipsStorage {
	return &membershipsStorage{
		plans: make(map[uuid.UUID]*storage.MembershipPlan),
	}
}

func (s *membershipsStorage) ListMembershipPlans(ctx context.Context, onlyActive bool) ([]storage.MembershipPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []storage.MembershipPlan{}
	for _, p := range s.plans {
		if onlyActive && !p.IsActive {
			continue
		}
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].PriceCents < results[j].PriceCents
	})
	return results, nil
}

func (s *membershipsStorage) GetMembershipPlan(ctx context.Context, id uuid.UUID) (*storage.MembershipPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *membershipsStorage) CreateMembershipPlan(ctx context.Context, plan *storage.MembershipPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	stored := *plan
	s.plans[plan.ID] = &stored
	return nil
}

func (s *membershipsStorage) UpdateMembershipPlan(ctx context.Context, plan *storage.MembershipPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[plan.ID]
	if !ok {
		return storage.ErrNotFound
	}
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now().UTC()

	stored := *plan
	s.plans[plan.ID] = &stored
	return nil
}
