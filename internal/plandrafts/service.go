package plandrafts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fdg312/fitclub/internal/foodproducts"
	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrDraftNotFound = errors.New("plan draft not found")
	ErrUnknownOp     = errors.New("unknown draft operation")
	ErrInvalidOp     = errors.New("invalid draft operation")
	ErrLimitReached  = errors.New("plan size limit reached")
)

// PlanSaver loads saved plans for editing and persists edited trees.
type PlanSaver interface {
	LoadForEdit(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID) (planeditor.Plan, error)
	SaveEdited(ctx context.Context, caller nutritionplans.Caller, id *uuid.UUID, tree planeditor.Plan) (*nutritionplans.PlanDTO, error)
}

// Service applies editor operations to drafts and submits them.
type Service struct {
	store    *Store
	plans    PlanSaver
	products nutritionplans.ProductCatalog
	limits   nutritionplans.Limits
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

func NewService(store *Store, plans PlanSaver, products nutritionplans.ProductCatalog, limits nutritionplans.Limits, m *metrics.Metrics, logger logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		plans:    plans,
		products: products,
		limits:   limits,
		metrics:  m,
		logger:   logger,
	}
}

// Create opens a draft, either fresh (one day, one meal) or over a saved plan.
func (s *Service) Create(ctx context.Context, caller nutritionplans.Caller, req CreateDraftRequest) (*DraftDTO, error) {
	var editor *planeditor.Editor
	if req.PlanID != nil {
		tree, err := s.plans.LoadForEdit(ctx, caller, *req.PlanID)
		if err != nil {
			return nil, err
		}
		editor = planeditor.Load(tree, nil)
	} else {
		editor = planeditor.New(nil)
		editor.SetName(strings.TrimSpace(req.Name))
	}

	d := s.store.Add(caller.UserID, req.PlanID, editor)
	s.logger.WithFields(logrus.Fields{"draft_id": d.ID, "user_id": caller.UserID}).Debug("plan draft opened")

	var dto *DraftDTO
	err := s.store.With(d.ID, caller.UserID, func(d *Draft, e *planeditor.Editor) error {
		dto = s.toDTO(d, e)
		return nil
	})
	return dto, err
}

func (s *Service) Get(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID) (*DraftDTO, error) {
	var dto *DraftDTO
	err := s.store.With(id, caller.UserID, func(d *Draft, e *planeditor.Editor) error {
		dto = s.toDTO(d, e)
		return nil
	})
	return dto, err
}

// Apply runs one operation. A rejected operation leaves the draft unchanged.
func (s *Service) Apply(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID, req OpRequest) (*DraftDTO, error) {
	// Product lookups hit storage, so resolve before taking the draft lock.
	var catalog planeditor.Catalog
	if req.Op == OpAddItem && req.ProductID != nil {
		resolved, err := s.products.Resolve(ctx, foodproducts.Caller{
			UserID:  caller.UserID,
			IsAdmin: caller.Role == storage.RoleAdmin,
		}, []uuid.UUID{*req.ProductID})
		if err != nil {
			return nil, err
		}
		catalog = resolved
	}

	var dto *DraftDTO
	err := s.store.With(id, caller.UserID, func(d *Draft, e *planeditor.Editor) error {
		e.SetCatalog(catalog)
		defer e.SetCatalog(nil)

		if err := s.apply(e, req); err != nil {
			return err
		}
		dto = s.toDTO(d, e)
		return nil
	})

	if !errors.Is(err, ErrDraftNotFound) {
		s.metrics.DraftOp(req.Op, err == nil)
	}
	return dto, err
}

func (s *Service) apply(e *planeditor.Editor, req OpRequest) error {
	activeDay, activeMeal := e.Selection()
	day := indexOr(req.DayIndex, activeDay)
	meal := indexOr(req.MealIndex, activeMeal)
	plan := e.Plan()

	switch req.Op {
	case OpAddDay:
		if s.limits.MaxDays > 0 && len(plan.Days) >= s.limits.MaxDays {
			return fmt.Errorf("%w: at most %d days", ErrLimitReached, s.limits.MaxDays)
		}
		e.AddDay()
		return nil

	case OpRemoveDay:
		return e.RemoveDay(day)

	case OpAddMeal:
		if day >= 0 && day < len(plan.Days) && s.limits.MaxMealsPerDay > 0 && len(plan.Days[day].Meals) >= s.limits.MaxMealsPerDay {
			return fmt.Errorf("%w: at most %d meals per day", ErrLimitReached, s.limits.MaxMealsPerDay)
		}
		return e.AddMeal(day)

	case OpRemoveMeal:
		return e.RemoveMeal(day, meal)

	case OpRenameMeal:
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidOp)
		}
		return e.RenameMeal(day, meal, strings.TrimSpace(*req.Name))

	case OpAddItem:
		if req.ProductID == nil {
			return fmt.Errorf("%w: product_id is required", ErrInvalidOp)
		}
		quantity, err := quantityOf(req)
		if err != nil {
			return err
		}
		if m := mealAt(plan, day, meal); m != nil && s.limits.MaxItemsPerMeal > 0 && len(m.Items) >= s.limits.MaxItemsPerMeal {
			return fmt.Errorf("%w: at most %d items per meal", ErrLimitReached, s.limits.MaxItemsPerMeal)
		}
		return e.AddFoodItem(day, meal, *req.ProductID, quantity)

	case OpUpdateItem:
		if req.ItemIndex == nil {
			return fmt.Errorf("%w: item_index is required", ErrInvalidOp)
		}
		quantity, err := quantityOf(req)
		if err != nil {
			return err
		}
		return e.UpdateItemQuantity(day, meal, *req.ItemIndex, quantity)

	case OpRemoveItem:
		if req.ItemIndex == nil {
			return fmt.Errorf("%w: item_index is required", ErrInvalidOp)
		}
		return e.RemoveFoodItem(day, meal, *req.ItemIndex)

	case OpSelect:
		return e.Select(day, meal)

	case OpRenamePlan:
		if req.Name == nil && req.Description == nil {
			return fmt.Errorf("%w: name or description is required", ErrInvalidOp)
		}
		if req.Name != nil {
			e.SetName(strings.TrimSpace(*req.Name))
		}
		if req.Description != nil {
			e.SetDescription(strings.TrimSpace(*req.Description))
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
}

// Submit validates and persists the draft. On success the draft is discarded;
// on failure it stays open so the client can fix it.
func (s *Service) Submit(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID) (*nutritionplans.PlanDTO, bool, error) {
	var (
		saved   *nutritionplans.PlanDTO
		created bool
	)
	err := s.store.With(id, caller.UserID, func(d *Draft, e *planeditor.Editor) error {
		plan, err := s.plans.SaveEdited(ctx, caller, d.PlanID, e.Plan())
		if err != nil {
			return err
		}
		saved, created = plan, d.PlanID == nil
		s.store.Remove(d.ID)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"draft_id": id,
		"plan_id":  saved.ID,
		"user_id":  caller.UserID,
	}).Info("plan draft submitted")
	return saved, created, nil
}

// Discard drops the draft without saving.
func (s *Service) Discard(ctx context.Context, caller nutritionplans.Caller, id uuid.UUID) error {
	return s.store.With(id, caller.UserID, func(d *Draft, e *planeditor.Editor) error {
		s.store.Remove(d.ID)
		return nil
	})
}

func (s *Service) toDTO(d *Draft, e *planeditor.Editor) *DraftDTO {
	day, meal := e.Selection()
	return &DraftDTO{
		ID:         d.ID,
		PlanID:     d.PlanID,
		Plan:       e.Plan(),
		ActiveDay:  day,
		ActiveMeal: meal,
		Totals:     e.Totals().Rounded(),
		ExpiresAt:  s.store.ExpiresAt(d),
	}
}

func indexOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func quantityOf(req OpRequest) (float64, error) {
	if req.Quantity == nil {
		return 0, fmt.Errorf("%w: quantity is required", ErrInvalidOp)
	}
	q := *req.Quantity
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, fmt.Errorf("%w: quantity must be a non-negative number", ErrInvalidOp)
	}
	return q, nil
}

func mealAt(p planeditor.Plan, day, meal int) *planeditor.Meal {
	if day < 0 || day >= len(p.Days) || meal < 0 || meal >= len(p.Days[day].Meals) {
		return nil
	}
	return &p.Days[day].Meals[meal]
}
