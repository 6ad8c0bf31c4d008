package nutritionplans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fdg312/fitclub/internal/foodproducts"
	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

// ProductCatalog resolves product ids visible to the caller.
type ProductCatalog interface {
	Resolve(ctx context.Context, caller foodproducts.Caller, ids []uuid.UUID) (planeditor.StaticCatalog, error)
}

// MembershipResolver returns the caller's active membership plan, or nil.
type MembershipResolver interface {
	ActiveMembership(ctx context.Context, userID string) (*uuid.UUID, error)
}

// Limits bound the size of a plan tree.
type Limits struct {
	MaxDays         int
	MaxMealsPerDay  int
	MaxItemsPerMeal int
}

// Caller — кто выполняет запрос
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) isAdmin() bool { return c.Role == storage.RoleAdmin }

func (c Caller) canAuthor() bool {
	return c.Role == storage.RoleCoach || c.Role == storage.RoleAdmin
}

func (c Caller) products() foodproducts.Caller {
	return foodproducts.Caller{UserID: c.UserID, IsAdmin: c.isAdmin()}
}

// Options configure a Service.
type Options struct {
	Storage        storage.NutritionPlansStorage
	Products       ProductCatalog
	Memberships    MembershipResolver
	Limits         Limits
	PersistTimeout time.Duration
	Metrics        *metrics.Metrics
	Logger         logrus.FieldLogger
}

// Service — сохранение и чтение планов питания с проверкой доступа
type Service struct {
	storage        storage.NutritionPlansStorage
	products       ProductCatalog
	memberships    MembershipResolver
	limits         Limits
	persistTimeout time.Duration
	metrics        *metrics.Metrics
	logger         logrus.FieldLogger
}

func NewService(opts Options) *Service {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		storage:        opts.Storage,
		products:       opts.Products,
		memberships:    opts.Memberships,
		limits:         opts.Limits,
		persistTimeout: opts.PersistTimeout,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
}

// List возвращает собственные планы и опубликованные планы, доступные по членству
func (s *Service) List(ctx context.Context, caller Caller) ([]PlanHeaderDTO, error) {
	plans, err := s.storage.ListNutritionPlans(ctx, storage.NutritionPlanFilter{
		OwnerUserID:      caller.UserID,
		IncludePublished: true,
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	membership, err := s.activeMembership(ctx, caller)
	if err != nil {
		return nil, err
	}

	out := make([]PlanHeaderDTO, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if p.OwnerUserID != caller.UserID && !caller.isAdmin() && !membershipAllows(p, membership) {
			continue
		}
		out = append(out, toHeaderDTO(p))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller Caller, id uuid.UUID) (*PlanDTO, error) {
	p, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return toDTO(p), nil
}

// Summary возвращает итоги по приёмам пищи, дням и среднее за день
func (s *Service) Summary(ctx context.Context, caller Caller, id uuid.UUID) (*SummaryResponse, error) {
	p, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		PlanID:  p.ID,
		Name:    p.Name,
		Summary: planeditor.Summarize(toEditorPlan(p)).Rounded(),
	}, nil
}

// Create строит дерево из запроса, проверяет его и сохраняет
func (s *Service) Create(ctx context.Context, caller Caller, req PlanRequest) (*PlanDTO, error) {
	if err := checkPublishing(caller, req); err != nil {
		return nil, err
	}
	tree, err := s.buildPlan(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	plan := &storage.NutritionPlan{
		OwnerUserID:      caller.UserID,
		IsSystem:         req.IsSystem,
		IsPublished:      req.IsPublished,
		MembershipPlanID: req.MembershipPlanID,
	}
	applyEditorPlan(plan, tree)

	if err := s.persist(ctx, "create", func(ctx context.Context) error {
		return s.storage.CreateNutritionPlan(ctx, plan)
	}); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"plan_id": plan.ID, "user_id": caller.UserID}).Info("nutrition plan created")
	return toDTO(plan), nil
}

// Update полностью заменяет дерево и атрибуты плана
func (s *Service) Update(ctx context.Context, caller Caller, id uuid.UUID, req PlanRequest) (*PlanDTO, error) {
	existing, err := s.loadEditable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := checkPublishing(caller, req); err != nil {
		return nil, err
	}
	tree, err := s.buildPlan(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	existing.IsSystem = req.IsSystem
	existing.IsPublished = req.IsPublished
	existing.MembershipPlanID = req.MembershipPlanID
	applyEditorPlan(existing, tree)

	if err := s.persistUpdate(ctx, existing); err != nil {
		return nil, err
	}
	return toDTO(existing), nil
}

func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	if _, err := s.loadEditable(ctx, caller, id); err != nil {
		return err
	}
	err := s.persist(ctx, "delete", func(ctx context.Context) error {
		return s.storage.DeleteNutritionPlan(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"plan_id": id, "user_id": caller.UserID}).Info("nutrition plan deleted")
	return nil
}

// LoadForEdit возвращает дерево плана, который вызывающий может изменять
func (s *Service) LoadForEdit(ctx context.Context, caller Caller, id uuid.UUID) (planeditor.Plan, error) {
	p, err := s.loadEditable(ctx, caller, id)
	if err != nil {
		return planeditor.Plan{}, err
	}
	return toEditorPlan(p), nil
}

// SaveEdited сохраняет дерево из редактора: создаёт новый приватный план
// (id == nil) или заменяет дерево существующего, сохраняя его атрибуты.
func (s *Service) SaveEdited(ctx context.Context, caller Caller, id *uuid.UUID, tree planeditor.Plan) (*PlanDTO, error) {
	tree = tree.Clone()
	tree.Renumber()
	if err := s.validateTree(tree); err != nil {
		return nil, err
	}

	if id == nil {
		plan := &storage.NutritionPlan{OwnerUserID: caller.UserID}
		applyEditorPlan(plan, tree)
		if err := s.persist(ctx, "create", func(ctx context.Context) error {
			return s.storage.CreateNutritionPlan(ctx, plan)
		}); err != nil {
			return nil, err
		}
		return toDTO(plan), nil
	}

	existing, err := s.loadEditable(ctx, caller, *id)
	if err != nil {
		return nil, err
	}
	applyEditorPlan(existing, tree)
	if err := s.persistUpdate(ctx, existing); err != nil {
		return nil, err
	}
	return toDTO(existing), nil
}

// RemoveDay удаляет день (номер с 1) и сразу сохраняет план
func (s *Service) RemoveDay(ctx context.Context, caller Caller, id uuid.UUID, dayNumber int) (*PlanDTO, error) {
	return s.editSaved(ctx, caller, id, func(e *planeditor.Editor) error {
		return e.RemoveDay(dayNumber - 1)
	})
}

// RemoveMeal удаляет приём пищи и сразу сохраняет план
func (s *Service) RemoveMeal(ctx context.Context, caller Caller, id uuid.UUID, dayNumber, mealNumber int) (*PlanDTO, error) {
	return s.editSaved(ctx, caller, id, func(e *planeditor.Editor) error {
		return e.RemoveMeal(dayNumber-1, mealNumber-1)
	})
}

// RemoveItem удаляет позицию (номер с 1) и сразу сохраняет план
func (s *Service) RemoveItem(ctx context.Context, caller Caller, id uuid.UUID, dayNumber, mealNumber, itemNumber int) (*PlanDTO, error) {
	return s.editSaved(ctx, caller, id, func(e *planeditor.Editor) error {
		return e.RemoveFoodItem(dayNumber-1, mealNumber-1, itemNumber-1)
	})
}

func (s *Service) editSaved(ctx context.Context, caller Caller, id uuid.UUID, op func(*planeditor.Editor) error) (*PlanDTO, error) {
	existing, err := s.loadEditable(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	editor := planeditor.Load(toEditorPlan(existing), nil)
	if err := op(editor); err != nil {
		if errors.Is(err, planeditor.ErrIndexOutOfRange) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	// Удаление последнего приёма или дня оставило бы пустую структуру
	tree := editor.Plan()
	if err := s.validateTree(tree); err != nil {
		return nil, err
	}

	applyEditorPlan(existing, tree)
	if err := s.persistUpdate(ctx, existing); err != nil {
		return nil, err
	}
	return toDTO(existing), nil
}

func (s *Service) persistUpdate(ctx context.Context, plan *storage.NutritionPlan) error {
	err := s.persist(ctx, "update", func(ctx context.Context) error {
		return s.storage.UpdateNutritionPlan(ctx, plan)
	})
	if err != nil {
		return err
	}
	s.logger.WithField("plan_id", plan.ID).Debug("nutrition plan updated")
	return nil
}

// persist выполняет запись в хранилище с таймаутом PERSIST_TIMEOUT_SECONDS
func (s *Service) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		s.metrics.PlanPersisted(op, "ok")
		return nil
	case errors.Is(err, storage.ErrNotFound):
		s.metrics.PlanPersisted(op, "error")
		return ErrPlanNotFound
	case errors.Is(err, storage.ErrProductMissing):
		// продукт удалили между сборкой дерева и записью
		s.metrics.PlanPersisted(op, "error")
		return ErrProductNotFound
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.metrics.PlanPersisted(op, "timeout")
		s.logger.WithField("op", op).Warn("nutrition plan persistence timed out")
		return &StorageError{Op: op, Err: fmt.Errorf("%w: %v", ErrPersistTimeout, err)}
	default:
		s.metrics.PlanPersisted(op, "error")
		s.logger.WithError(err).WithField("op", op).Error("nutrition plan persistence failed")
		return &StorageError{Op: op, Err: err}
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*storage.NutritionPlan, error) {
	p, err := s.storage.GetNutritionPlan(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, &StorageError{Op: "get", Err: err}
	}
	return p, nil
}

// loadVisible: свой план, опубликованный план без ограничения членства
// или с членством вызывающего. Неопубликованные чужие планы не раскрываются.
func (s *Service) loadVisible(ctx context.Context, caller Caller, id uuid.UUID) (*storage.NutritionPlan, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerUserID == caller.UserID || caller.isAdmin() {
		return p, nil
	}
	if !p.IsPublished {
		return nil, ErrPlanNotFound
	}
	membership, err := s.activeMembership(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !membershipAllows(p, membership) {
		return nil, ErrMembershipRequired
	}
	return p, nil
}

func (s *Service) loadEditable(ctx context.Context, caller Caller, id uuid.UUID) (*storage.NutritionPlan, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerUserID == caller.UserID || caller.isAdmin() {
		return p, nil
	}
	if p.IsPublished {
		return nil, ErrForbidden
	}
	return nil, ErrPlanNotFound
}

func (s *Service) activeMembership(ctx context.Context, caller Caller) (*uuid.UUID, error) {
	if s.memberships == nil {
		return nil, nil
	}
	id, err := s.memberships.ActiveMembership(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}
	return id, nil
}

func membershipAllows(p *storage.NutritionPlan, membership *uuid.UUID) bool {
	if !p.IsPublished {
		return false
	}
	if p.MembershipPlanID == nil {
		return true
	}
	return membership != nil && *membership == *p.MembershipPlanID
}

func checkPublishing(caller Caller, req PlanRequest) error {
	if caller.canAuthor() {
		return nil
	}
	if req.IsSystem || req.IsPublished || req.MembershipPlanID != nil {
		return ErrForbidden
	}
	return nil
}

// buildPlan разворачивает запрос в дерево: продукты берутся из каталога,
// питательность пересчитывается, нумерация плотная.
func (s *Service) buildPlan(ctx context.Context, caller Caller, req PlanRequest) (planeditor.Plan, error) {
	var ids []uuid.UUID
	for _, d := range req.Days {
		for _, m := range d.Meals {
			for _, it := range m.Items {
				ids = append(ids, it.ProductID)
			}
		}
	}

	catalog := planeditor.StaticCatalog{}
	if len(ids) > 0 {
		var err error
		catalog, err = s.products.Resolve(ctx, caller.products(), ids)
		if err != nil {
			return planeditor.Plan{}, err
		}
	}

	tree := planeditor.Plan{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Days:        make([]planeditor.Day, 0, len(req.Days)),
	}
	for di, d := range req.Days {
		day := planeditor.Day{DayNumber: di + 1, Meals: make([]planeditor.Meal, 0, len(d.Meals))}
		for mi, m := range d.Meals {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				name = planeditor.DefaultMealName(mi)
			}
			meal := planeditor.Meal{MealNumber: mi + 1, Name: name, Items: make([]planeditor.Item, 0, len(m.Items))}
			for ii, it := range m.Items {
				field := fmt.Sprintf("days[%d].meals[%d].items[%d]", di, mi, ii)
				if math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) || it.Quantity < 0 {
					return planeditor.Plan{}, &ValidationError{Field: field + ".quantity", Message: "quantity must be a non-negative number"}
				}
				product, ok := catalog.Lookup(it.ProductID)
				if !ok {
					return planeditor.Plan{}, &ValidationError{Field: field + ".product_id", Message: "unknown food product"}
				}
				meal.Items = append(meal.Items, planeditor.NewItem(product, it.Quantity))
			}
			day.Meals = append(day.Meals, meal)
		}
		tree.Days = append(tree.Days, day)
	}

	if err := s.validateTree(tree); err != nil {
		return planeditor.Plan{}, err
	}
	return tree, nil
}

// validateTree — проверка перед сохранением: правила редактора и ограничения размера
func (s *Service) validateTree(tree planeditor.Plan) error {
	if err := planeditor.Validate(tree); err != nil {
		var ve *planeditor.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Field: ve.Field, Message: ve.Message}
		}
		return err
	}
	if len([]rune(tree.Name)) > maxNameLen {
		return &ValidationError{Field: "name", Message: "plan name is too long"}
	}
	if len([]rune(tree.Description)) > maxDescriptionLen {
		return &ValidationError{Field: "description", Message: "description is too long"}
	}
	if s.limits.MaxDays > 0 && len(tree.Days) > s.limits.MaxDays {
		return &ValidationError{Field: "days", Message: fmt.Sprintf("a plan may have at most %d days", s.limits.MaxDays)}
	}
	for di, d := range tree.Days {
		if s.limits.MaxMealsPerDay > 0 && len(d.Meals) > s.limits.MaxMealsPerDay {
			return &ValidationError{
				Field:   fmt.Sprintf("days[%d].meals", di),
				Message: fmt.Sprintf("a day may have at most %d meals", s.limits.MaxMealsPerDay),
			}
		}
		for mi, m := range d.Meals {
			if s.limits.MaxItemsPerMeal > 0 && len(m.Items) > s.limits.MaxItemsPerMeal {
				return &ValidationError{
					Field:   fmt.Sprintf("days[%d].meals[%d].items", di, mi),
					Message: fmt.Sprintf("a meal may have at most %d items", s.limits.MaxItemsPerMeal),
				}
			}
		}
	}
	return nil
}
