package memberships

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound       = errors.New("membership plan not found")
	ErrInactive       = errors.New("membership plan is not active")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidPlan    = errors.New("invalid membership plan")
)

// PaymentNotProcessed marks subscriptions recorded without billing.
const PaymentNotProcessed = "not_processed"

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Storage is the slice of storage.Storage the service needs.
type Storage interface {
	storage.MembershipsStorage
	SetMembership(ctx context.Context, memberID string, planID *uuid.UUID, expiresAt *time.Time) error
}

// Service — тарифы клуба и привязка участника к тарифу
type Service struct {
	storage Storage
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewService(storage Storage, logger logrus.FieldLogger) *Service {
	return &Service{storage: storage, logger: logger, now: time.Now}
}

// List возвращает активные тарифы; includeInactive — для админов
func (s *Service) List(ctx context.Context, includeInactive bool) ([]MembershipPlanDTO, error) {
	plans, err := s.storage.ListMembershipPlans(ctx, !includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]MembershipPlanDTO, 0, len(plans))
	for i := range plans {
		out = append(out, s.toDTO(&plans[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*MembershipPlanDTO, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !includeInactive {
		return nil, ErrNotFound
	}
	dto := s.toDTO(p)
	return &dto, nil
}

func (s *Service) Create(ctx context.Context, req MembershipPlanRequest) (*MembershipPlanDTO, error) {
	p := &storage.MembershipPlan{IsActive: true}
	if err := applyRequest(p, req); err != nil {
		return nil, err
	}
	if err := s.storage.CreateMembershipPlan(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithField("membership_plan_id", p.ID).Info("membership plan created")
	dto := s.toDTO(p)
	return &dto, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req MembershipPlanRequest) (*MembershipPlanDTO, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRequest(p, req); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateMembershipPlan(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	dto := s.toDTO(p)
	return &dto, nil
}

// Subscribe назначает тариф участнику без оплаты. Срок считается от текущего
// момента; тариф с duration_days = 0 бессрочный.
func (s *Service) Subscribe(ctx context.Context, memberID string, planID uuid.UUID) (*SubscriptionDTO, error) {
	p, err := s.get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrInactive
	}

	var expiresAt *time.Time
	if p.DurationDays > 0 {
		t := s.now().UTC().AddDate(0, 0, p.DurationDays)
		expiresAt = &t
	}

	id := p.ID
	if err := s.storage.SetMembership(ctx, memberID, &id, expiresAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":            memberID,
		"membership_plan_id": id,
	}).Info("membership subscription recorded")

	return &SubscriptionDTO{
		MemberID:         memberID,
		MembershipPlanID: id,
		ExpiresAt:        expiresAt,
		PaymentStatus:    PaymentNotProcessed,
	}, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*storage.MembershipPlan, error) {
	p, err := s.storage.GetMembershipPlan(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func applyRequest(p *storage.MembershipPlan, req MembershipPlanRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if req.PriceCents < 0 {
		return fmt.Errorf("%w: price_cents must be >= 0", ErrInvalidPlan)
	}
	if req.DurationDays < 0 {
		return fmt.Errorf("%w: duration_days must be >= 0", ErrInvalidPlan)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}
	if !currencyRe.MatchString(currency) {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidPlan)
	}

	features, err := json.Marshal(req.Features)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	p.Name = name
	p.Description = strings.TrimSpace(req.Description)
	p.PriceCents = req.PriceCents
	p.Currency = currency
	p.DurationDays = req.DurationDays
	p.Features = features
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return nil
}

func (s *Service) toDTO(p *storage.MembershipPlan) MembershipPlanDTO {
	features, err := ParseFeatures(p.Features)
	if err != nil {
		s.logger.WithError(err).WithField("membership_plan_id", p.ID).Warn("unreadable membership features")
		features = NewStringList()
	}
	return MembershipPlanDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PriceCents:   p.PriceCents,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Features:     features,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
