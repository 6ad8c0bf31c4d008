package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

const (
	statusActive = "active"
	statusPaused = "paused"
)

type userNutritionPlansStorage struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]*storage.UserNutritionPlan
}

func newUserNutritionPlansStorage() *userNutritionPlansStorage {
	return &userNutritionPlansStorage{
		plans: make(map[uuid.UUID]*storage.UserNutritionPlan),
	}
}

func (s *userNutritionPlansStorage) CreateUserNutritionPlan(ctx context.Context, plan *storage.UserNutritionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if plan.Status == statusActive {
		s.pauseOthersLocked(plan.UserID, plan.ID, now)
	}

	stored := *plan
	s.plans[plan.ID] = &stored
	return nil
}

func (s *userNutritionPlansStorage) GetUserNutritionPlan(ctx context.Context, id uuid.UUID) (*storage.UserNutritionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *userNutritionPlansStorage) ListUserNutritionPlans(ctx context.Context, userID string) ([]storage.UserNutritionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []storage.UserNutritionPlan{}
	for _, p := range s.plans {
		if p.UserID == userID {
			results = append(results, *p)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *userNutritionPlansStorage) SetUserNutritionPlanStatus(ctx context.Context, userID string, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	if status == statusActive {
		s.pauseOthersLocked(userID, id, now)
	}
	p.Status = status
	p.UpdatedAt = now
	return nil
}

func (s *userNutritionPlansStorage) DeleteUserNutritionPlan(ctx context.Context, userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *userNutritionPlansStorage) pauseOthersLocked(userID string, keep uuid.UUID, now time.Time) {
	for id, p := range s.plans {
		if id != keep && p.UserID == userID && p.Status == statusActive {
			p.Status = statusPaused
			p.UpdatedAt = now
		}
	}
}
