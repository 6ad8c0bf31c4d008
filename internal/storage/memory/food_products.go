package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

type foodProductsStorage struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*storage.FoodProduct
	// plans нужен для проверки ссылок при удалении
	plans *nutritionPlansStorage
}

func newFoodProductsStorage(plans *nutritionPlansStorage, seed []storage.FoodProduct) *foodProductsStorage {
	s := &foodProductsStorage{
		products: make(map[uuid.UUID]*storage.FoodProduct),
		plans:    plans,
	}
	now := time.Now().UTC()
	for i := range seed {
		p := seed[i]
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = &p
	}
	return s
}

func (s *foodProductsStorage) ListFoodProducts(ctx context.Context, ownerUserID, query string) ([]storage.FoodProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(strings.TrimSpace(query))
	results := []storage.FoodProduct{}
	for _, p := range s.products {
		if !p.IsSystem && p.OwnerUserID != ownerUserID {
			continue
		}
		if queryLower != "" && !strings.Contains(strings.ToLower(p.Name), queryLower) {
			continue
		}
		results = append(results, *p)
	}

	// Системные первыми, затем по имени
	sort.Slice(results, func(i, j int) bool {
		if results[i].IsSystem != results[j].IsSystem {
			return results[i].IsSystem
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

func (s *foodProductsStorage) GetFoodProduct(ctx context.Context, id uuid.UUID) (*storage.FoodProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *foodProductsStorage) CreateFoodProduct(ctx context.Context, product *storage.FoodProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	stored := *product
	s.products[product.ID] = &stored
	return nil
}

func (s *foodProductsStorage) UpdateFoodProduct(ctx context.Context, product *storage.FoodProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return storage.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()

	stored := *product
	s.products[product.ID] = &stored
	return nil
}

func (s *foodProductsStorage) DeleteFoodProduct(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return storage.ErrNotFound
	}
	if s.plans != nil && s.plans.referencesProduct(id) {
		return storage.ErrInUse
	}
	delete(s.products, id)
	return nil
}
