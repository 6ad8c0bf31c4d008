package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

type nutritionPlansStorage struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]*storage.NutritionPlan
}

func newNutritionPlansStorage() *nutritionPlansStorage {
	return &nutritionPlansStorage{
		plans: make(map[uuid.UUID]*storage.NutritionPlan),
	}
}

func (s *nutritionPlansStorage) CreateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	s.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (s *nutritionPlansStorage) GetNutritionPlan(ctx context.Context, id uuid.UUID) (*storage.NutritionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePlan(p), nil
}

func (s *nutritionPlansStorage) UpdateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[plan.ID]
	if !ok {
		return storage.ErrNotFound
	}
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now().UTC()

	s.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (s *nutritionPlansStorage) DeleteNutritionPlan(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *nutritionPlansStorage) ListNutritionPlans(ctx context.Context, filter storage.NutritionPlanFilter) ([]storage.NutritionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []storage.NutritionPlan{}
	for _, p := range s.plans {
		own := filter.OwnerUserID != "" && p.OwnerUserID == filter.OwnerUserID
		if !own && !(filter.IncludePublished && p.IsPublished) {
			continue
		}
		header := *p
		header.Days = nil
		results = append(results, header)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
	return results, nil
}

// referencesProduct проверяет, используется ли продукт в каком-либо плане
func (s *nutritionPlansStorage) referencesProduct(productID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		for _, d := range p.Days {
			for _, m := range d.Meals {
				for _, it := range m.Items {
					if it.ProductID == productID {
						return true
					}
				}
			}
		}
	}
	return false
}

// clonePlan делает глубокую копию, чтобы вызывающий код не менял хранилище
func clonePlan(p *storage.NutritionPlan) *storage.NutritionPlan {
	out := *p
	if p.MembershipPlanID != nil {
		id := *p.MembershipPlanID
		out.MembershipPlanID = &id
	}
	out.Days = make([]storage.NutritionPlanDay, len(p.Days))
	for i, d := range p.Days {
		nd := storage.NutritionPlanDay{DayNumber: d.DayNumber, Meals: make([]storage.NutritionPlanMeal, len(d.Meals))}
		for j, m := range d.Meals {
			nm := storage.NutritionPlanMeal{MealNumber: m.MealNumber, Name: m.Name, Items: make([]storage.NutritionPlanItem, len(m.Items))}
			copy(nm.Items, m.Items)
			nd.Meals[j] = nm
		}
		out.Days[i] = nd
	}
	return &out
}
