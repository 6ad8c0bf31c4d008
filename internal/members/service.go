package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("member not found")
	ErrEmptyName   = errors.New("name cannot be empty")
	ErrNameTooLong = errors.New("name is too long")
	ErrInvalidRole = errors.New("invalid role")
)

const (
	maxNameLen   = 120
	defaultLimit = 50
	maxLimit     = 200
)

// Service — бизнес-логика участников
type Service struct {
	storage storage.MembersStorage
	now     func() time.Time
}

func NewService(storage storage.MembersStorage) *Service {
	return &Service{storage: storage, now: time.Now}
}

// Me возвращает участника. Пользователь без записи (например DEFAULT_USER_ID)
// получает синтетический профиль с ролью из контекста.
func (s *Service) Me(ctx context.Context, userID, role string) (*MemberDTO, error) {
	m, err := s.storage.GetMember(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if role == "" {
				role = storage.RoleMember
			}
			return &MemberDTO{ID: userID, Role: role}, nil
		}
		return nil, err
	}
	dto := s.toDTO(m)
	return &dto, nil
}

// UpdateName меняет отображаемое имя
func (s *Service) UpdateName(ctx context.Context, userID string, req UpdateMeRequest) (*MemberDTO, error) {
	m, err := s.storage.GetMember(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if len([]rune(name)) > maxNameLen {
			return nil, ErrNameTooLong
		}
		m.Name = name
	}

	if err := s.storage.UpdateMember(ctx, m); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	dto := s.toDTO(m)
	return &dto, nil
}

// List возвращает участников (только для админов)
func (s *Service) List(ctx context.Context, limit, offset int) (*MembersResponse, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.storage.ListMembers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &MembersResponse{Members: make([]MemberDTO, 0, len(items)), Limit: limit, Offset: offset}
	for i := range items {
		resp.Members = append(resp.Members, s.toDTO(&items[i]))
	}
	return resp, nil
}

// SetRole назначает роль участнику
func (s *Service) SetRole(ctx context.Context, memberID, role string) (*MemberDTO, error) {
	role = strings.TrimSpace(role)
	switch role {
	case storage.RoleMember, storage.RoleCoach, storage.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}

	m, err := s.storage.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Role = role
	if err := s.storage.UpdateMember(ctx, m); err != nil {
		return nil, err
	}
	dto := s.toDTO(m)
	return &dto, nil
}

// ActiveMembership возвращает план членства, если он назначен и не истёк.
func (s *Service) ActiveMembership(ctx context.Context, userID string) (*uuid.UUID, error) {
	m, err := s.storage.GetMember(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !membershipActive(m, s.now()) {
		return nil, nil
	}
	id := *m.MembershipPlanID
	return &id, nil
}

func membershipActive(m *storage.Member, now time.Time) bool {
	if m.MembershipPlanID == nil {
		return false
	}
	return m.MembershipExpiresAt == nil || m.MembershipExpiresAt.After(now)
}

func (s *Service) toDTO(m *storage.Member) MemberDTO {
	return MemberDTO{
		ID:                  m.ID,
		Email:               m.Email,
		Name:                m.Name,
		Role:                m.Role,
		MembershipPlanID:    m.MembershipPlanID,
		MembershipExpiresAt: m.MembershipExpiresAt,
		MembershipActive:    membershipActive(m, s.now()),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
