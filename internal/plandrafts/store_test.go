package plandrafts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/fitclub/internal/logging"
	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/planeditor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, metrics.New(), logging.Discard())
	s.now = clock.Now
	return s, clock
}

func TestStoreWithChecksOwner(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	d := s.Add("user-a", nil, planeditor.New(nil))

	called := false
	err := s.With(d.ID, "user-b", func(*Draft, *planeditor.Editor) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.False(t, called)

	assert.ErrorIs(t, s.With(uuid.New(), "user-a", func(*Draft, *planeditor.Editor) error { return nil }), ErrDraftNotFound)
	assert.NoError(t, s.With(d.ID, "user-a", func(*Draft, *planeditor.Editor) error { return nil }))
}

func TestStoreSweepEvictsIdleDrafts(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	stale := s.Add("user-a", nil, planeditor.New(nil))
	clock.Advance(20 * time.Minute)
	fresh := s.Add("user-a", nil, planeditor.New(nil))

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	assert.ErrorIs(t, s.With(stale.ID, "user-a", func(*Draft, *planeditor.Editor) error { return nil }), ErrDraftNotFound)

	// Touching a draft pushes its expiry forward.
	require.NoError(t, s.With(fresh.ID, "user-a", func(*Draft, *planeditor.Editor) error { return nil }))
	clock.Advance(25 * time.Minute)
	assert.Equal(t, 0, s.Sweep())
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestStoreSerializesOperations(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	d := s.Add("user-a", nil, planeditor.New(nil))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(d.ID, "user-a", func(_ *Draft, e *planeditor.Editor) error {
				e.AddDay()
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.With(d.ID, "user-a", func(_ *Draft, e *planeditor.Editor) error {
		plan := e.Plan()
		require.Len(t, plan.Days, workers+1)
		for i, day := range plan.Days {
			assert.Equal(t, i+1, day.DayNumber)
		}
		return nil
	}))
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
