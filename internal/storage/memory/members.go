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

type membersStorage struct {
	mu      sync.RWMutex
	members map[string]*storage.Member // key: id
	byEmail map[string]string          // key: lower(email) -> id
}

func newMembersStorage() *membersStorage {
	return &membersStorage{
		members: make(map[string]*storage.Member),
		byEmail: make(map[string]string),
	}
}

func (s *membersStorage) GetMember(ctx context.Context, id string) (*storage.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *membersStorage) UpsertMemberByEmail(ctx context.Context, member *storage.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(member.Email))
	if id, ok := s.byEmail[key]; ok {
		*member = *s.members[id]
		return nil
	}

	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.Role == "" {
		member.Role = storage.RoleMember
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	stored := *member
	s.members[member.ID] = &stored
	if key != "" {
		s.byEmail[key] = member.ID
	}
	return nil
}

func (s *membersStorage) UpdateMember(ctx context.Context, member *storage.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[member.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = member.Name
	existing.Role = member.Role
	existing.UpdatedAt = time.Now().UTC()
	*member = *existing
	return nil
}

func (s *membersStorage) SetMembership(ctx context.Context, memberID string, planID *uuid.UUID, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.members[memberID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.MembershipPlanID = planID
	existing.MembershipExpiresAt = expiresAt
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *membersStorage) ListMembers(ctx context.Context, limit, offset int) ([]storage.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]storage.Member, 0, len(s.members))
	for _, m := range s.members {
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, limit, offset), nil
}

// paginate применяет limit/offset к срезу
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
