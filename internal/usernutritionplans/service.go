package usernutritionplans

import (
	"context"
	"errors"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound     = errors.New("user nutrition plan not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Service — персональные планы питания, рассчитанные калькулятором
type Service struct {
	storage storage.UserNutritionPlansStorage
	logger  logrus.FieldLogger
}

func NewService(storage storage.UserNutritionPlansStorage, logger logrus.FieldLogger) *Service {
	return &Service{storage: storage, logger: logger}
}

// Calculate только считает норму, ничего не сохраняя
func (s *Service) Calculate(req CalculateRequest) (Targets, error) {
	if err := req.Normalize(); err != nil {
		return Targets{}, err
	}
	return Calculate(req), nil
}

// Create считает и сохраняет план как активный; прочие активные планы встают на паузу
func (s *Service) Create(ctx context.Context, userID string, req CalculateRequest) (*UserNutritionPlanDTO, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	t := Calculate(req)

	p := &storage.UserNutritionPlan{
		UserID:         userID,
		Goal:           req.Goal,
		ActivityLevel:  req.ActivityLevel,
		Gender:         req.Gender,
		Age:            req.Age,
		HeightCm:       req.HeightCm,
		WeightKg:       req.WeightKg,
		BMR:            t.BMR,
		TDEE:           t.TDEE,
		TargetCalories: t.TargetCalories,
		ProteinG:       t.ProteinG,
		FatG:           t.FatG,
		CarbsG:         t.CarbsG,
		Status:         StatusActive,
	}
	if err := s.storage.CreateUserNutritionPlan(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"plan_id": p.ID,
	}).Info("user nutrition plan created")

	dto := toDTO(p)
	return &dto, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]UserNutritionPlanDTO, error) {
	plans, err := s.storage.ListUserNutritionPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]UserNutritionPlanDTO, 0, len(plans))
	for i := range plans {
		out = append(out, toDTO(&plans[i]))
	}
	return out, nil
}

// Get возвращает план владельца; чужой план неотличим от отсутствующего
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*UserNutritionPlanDTO, error) {
	p, err := s.storage.GetUserNutritionPlan(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	dto := toDTO(p)
	return &dto, nil
}

func (s *Service) Pause(ctx context.Context, userID string, id uuid.UUID) (*UserNutritionPlanDTO, error) {
	return s.setStatus(ctx, userID, id, StatusPaused)
}

// Activate делает план активным и ставит на паузу остальные
func (s *Service) Activate(ctx context.Context, userID string, id uuid.UUID) (*UserNutritionPlanDTO, error) {
	return s.setStatus(ctx, userID, id, StatusActive)
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.storage.DeleteUserNutritionPlan(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) setStatus(ctx context.Context, userID string, id uuid.UUID, status string) (*UserNutritionPlanDTO, error) {
	if err := s.storage.SetUserNutritionPlanStatus(ctx, userID, id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func toDTO(p *storage.UserNutritionPlan) UserNutritionPlanDTO {
	return UserNutritionPlanDTO{
		ID: p.ID,
		CalculateRequest: CalculateRequest{
			Goal:          p.Goal,
			ActivityLevel: p.ActivityLevel,
			Gender:        p.Gender,
			Age:           p.Age,
			HeightCm:      p.HeightCm,
			WeightKg:      p.WeightKg,
		},
		Targets: Targets{
			BMR:            p.BMR,
			TDEE:           p.TDEE,
			TargetCalories: p.TargetCalories,
			ProteinG:       p.ProteinG,
			FatG:           p.FatG,
			CarbsG:         p.CarbsG,
		},
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
