// Package plandrafts keeps server-held plan editors between requests.
// Operations on one draft are serialized by the draft's own mutex.
package plandrafts

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Draft is one user's in-progress plan.
type Draft struct {
	ID          uuid.UUID
	OwnerUserID string
	PlanID      *uuid.UUID // nil for a plan that has not been saved yet

	mu       sync.Mutex
	editor   *planeditor.Editor
	lastUsed time.Time
	closed   bool
}

// Store holds drafts in memory and evicts idle ones.
type Store struct {
	mu      sync.RWMutex
	drafts  map[uuid.UUID]*Draft
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

func NewStore(ttl time.Duration, m *metrics.Metrics, logger logrus.FieldLogger) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		drafts:  make(map[uuid.UUID]*Draft),
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Add registers a new draft wrapping editor.
func (s *Store) Add(ownerUserID string, planID *uuid.UUID, editor *planeditor.Editor) *Draft {
	d := &Draft{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		PlanID:      planID,
		editor:      editor,
		lastUsed:    s.now(),
	}

	s.mu.Lock()
	s.drafts[d.ID] = d
	n := len(s.drafts)
	s.mu.Unlock()

	s.metrics.DraftsActive(n)
	return d
}

// With runs fn while holding the draft lock. Drafts of other users are
// reported as missing.
func (s *Store) With(id uuid.UUID, ownerUserID string, fn func(d *Draft, e *planeditor.Editor) error) error {
	s.mu.RLock()
	d, ok := s.drafts[id]
	s.mu.RUnlock()
	if !ok || d.OwnerUserID != ownerUserID {
		return ErrDraftNotFound
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftNotFound
	}
	d.lastUsed = s.now()
	return fn(d, d.editor)
}

// Remove discards a draft. The caller must hold the draft lock.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	if ok {
		delete(s.drafts, id)
	}
	n := len(s.drafts)
	s.mu.Unlock()

	if ok {
		d.closed = true
		s.metrics.DraftsActive(n)
	}
}

// Len returns the number of live drafts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// ExpiresAt returns when d is evicted if left idle. Call with d locked.
func (s *Store) ExpiresAt(d *Draft) time.Time {
	return d.lastUsed.Add(s.ttl)
}

// Sweep evicts drafts idle for longer than the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.RLock()
	candidates := make([]*Draft, 0)
	for _, d := range s.drafts {
		candidates = append(candidates, d)
	}
	s.mu.RUnlock()

	removed := 0
	for _, d := range candidates {
		// TryLock: a draft busy with an operation is not idle.
		if !d.mu.TryLock() {
			continue
		}
		expired := !d.closed && now.Sub(d.lastUsed) > s.ttl
		if expired {
			s.Remove(d.ID)
			removed++
		}
		d.mu.Unlock()
	}

	if removed > 0 {
		s.logger.WithField("evicted", removed).Info("expired plan drafts evicted")
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
