package memory

import (
	"github.com/fdg312/fitclub/internal/storage"
)

// ErrNotFound оставлен для совместимости с вызывающим кодом
var ErrNotFound = storage.ErrNotFound

// MemoryStorage — in-memory реализация storage.Storage
type MemoryStorage struct {
	*membersStorage
	*foodProductsStorage
	*nutritionPlansStorage
	*userNutritionPlansStorage
	*membershipsStorage
	*exportsStorage
}

// New создаёт MemoryStorage с системным каталогом продуктов
func New() *MemoryStorage {
	plans := newNutritionPlansStorage()
	return &MemoryStorage{
		membersStorage:            newMembersStorage(),
		foodProductsStorage:       newFoodProductsStorage(plans, storage.SystemFoodProducts()),
		nutritionPlansStorage:     plans,
		userNutritionPlansStorage: newUserNutritionPlansStorage(),
		membershipsStorage:        newMembershipsStorage(),
		exportsStorage:            newExportsStorage(),
	}
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}

var _ storage.Storage = (*MemoryStorage)(nil)
