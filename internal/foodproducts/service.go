package foodproducts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("food product not found")
	ErrForbidden      = errors.New("food product belongs to another user")
	ErrInUse          = errors.New("food product is used by a nutrition plan")
	ErrInvalidProduct = errors.New("invalid food product")
)

const maxNameLen = 200

// Service — каталог продуктов: системные + продукты пользователя
type Service struct {
	storage storage.FoodProductsStorage
}

func NewService(storage storage.FoodProductsStorage) *Service {
	return &Service{storage: storage}
}

// Caller — кто выполняет запрос
type Caller struct {
	UserID  string
	IsAdmin bool
}

func (c Caller) canSee(p *storage.FoodProduct) bool {
	return p.IsSystem || c.IsAdmin || p.OwnerUserID == c.UserID
}

func (c Caller) canEdit(p *storage.FoodProduct) bool {
	if c.IsAdmin {
		return true
	}
	return !p.IsSystem && p.OwnerUserID == c.UserID
}

// List возвращает системные продукты и продукты пользователя, query — подстрока имени
func (s *Service) List(ctx context.Context, caller Caller, query string) ([]FoodProductDTO, error) {
	items, err := s.storage.ListFoodProducts(ctx, caller.UserID, query)
	if err != nil {
		return nil, err
	}
	out := make([]FoodProductDTO, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller Caller, id uuid.UUID) (*FoodProductDTO, error) {
	p, err := s.get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(p)
	return &dto, nil
}

func (s *Service) get(ctx context.Context, caller Caller, id uuid.UUID) (*storage.FoodProduct, error) {
	p, err := s.storage.GetFoodProduct(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Чужие продукты не раскрываем
	if !caller.canSee(p) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, caller Caller, req FoodProductRequest) (*FoodProductDTO, error) {
	p, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	if req.IsSystem {
		if !caller.IsAdmin {
			return nil, ErrForbidden
		}
		p.IsSystem = true
	} else {
		p.OwnerUserID = caller.UserID
	}

	if err := s.storage.CreateFoodProduct(ctx, p); err != nil {
		return nil, err
	}
	dto := toDTO(p)
	return &dto, nil
}

// Update полностью заменяет значения продукта. Уже сохранённые позиции
// планов хранят снимок и не пересчитываются.
func (s *Service) Update(ctx context.Context, caller Caller, id uuid.UUID, req FoodProductRequest) (*FoodProductDTO, error) {
	existing, err := s.get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.canEdit(existing) {
		return nil, ErrForbidden
	}

	p, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.IsSystem = existing.IsSystem
	p.OwnerUserID = existing.OwnerUserID

	if err := s.storage.UpdateFoodProduct(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	dto := toDTO(p)
	return &dto, nil
}

func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	existing, err := s.get(ctx, caller, id)
	if err != nil {
		return err
	}
	if !caller.canEdit(existing) {
		return ErrForbidden
	}

	if err := s.storage.DeleteFoodProduct(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, storage.ErrInUse):
			return ErrInUse
		}
		return err
	}
	return nil
}

// Resolve загружает продукты по ID и собирает каталог для редактора плана.
// Отсутствующие и невидимые продукты в каталог не попадают.
func (s *Service) Resolve(ctx context.Context, caller Caller, ids []uuid.UUID) (planeditor.StaticCatalog, error) {
	catalog := make(planeditor.StaticCatalog, len(ids))
	for _, id := range ids {
		if _, ok := catalog[id]; ok {
			continue
		}
		p, err := s.get(ctx, caller, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve product %s: %w", id, err)
		}
		catalog[id] = planeditor.Product{ID: p.ID, Name: p.Name, Per100: p.Per100}
	}
	return catalog, nil
}

func fromRequest(req FoodProductRequest) (*storage.FoodProduct, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if len([]rune(name)) > maxNameLen {
		return nil, fmt.Errorf("%w: name is too long", ErrInvalidProduct)
	}

	required := []struct {
		field string
		value *float64
	}{
		{"calories", req.Calories},
		{"protein", req.Protein},
		{"carbs", req.Carbs},
		{"fat", req.Fat},
	}
	for _, r := range required {
		if r.value == nil {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidProduct, r.field)
		}
		if err := checkAmount(r.field, *r.value); err != nil {
			return nil, err
		}
	}
	for field, v := range map[string]*float64{"fiber": req.Fiber, "sugar": req.Sugar} {
		if v == nil {
			continue
		}
		if err := checkAmount(field, *v); err != nil {
			return nil, err
		}
	}

	return &storage.FoodProduct{
		Name: name,
		Per100: nutricalc.Per100{
			Calories: *req.Calories,
			Protein:  *req.Protein,
			Carbs:    *req.Carbs,
			Fat:      *req.Fat,
		},
		Fiber: req.Fiber,
		Sugar: req.Sugar,
	}, nil
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidProduct, field)
	}
	return nil
}

func toDTO(p *storage.FoodProduct) FoodProductDTO {
	return FoodProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Calories:    p.Per100.Calories,
		Protein:     p.Per100.Protein,
		Carbs:       p.Per100.Carbs,
		Fat:         p.Per100.Fat,
		Fiber:       p.Fiber,
		Sugar:       p.Sugar,
		IsSystem:    p.IsSystem,
		OwnerUserID: p.OwnerUserID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
