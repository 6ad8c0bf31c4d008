package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
)

// exportsStorage — in-memory storage для метаданных выгрузок
type exportsStorage struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*storage.ExportMeta
}

func newExportsStorage() *exportsStorage {
	return &exportsStorage{
		exports: make(map[uuid.UUID]*storage.ExportMeta),
	}
}

func (s *exportsStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	export.CreatedAt = time.Now().UTC()

	stored := *export
	s.exports[export.ID] = &stored
	return nil
}

func (s *exportsStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (s *exportsStorage) ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []storage.ExportMeta
	for _, e := range s.exports {
		if e.OwnerUserID == ownerUserID {
			meta := *e
			filtered = append(filtered, meta)
		}
	}

	// Сортируем по created_at DESC
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return paginate(filtered, limit, offset), nil
}

func (s *exportsStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exports[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.exports, id)
	return nil
}
