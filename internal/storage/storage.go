package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/google/uuid"
)

var (
	// ErrNotFound возвращается, когда запись не найдена
	ErrNotFound = errors.New("not found")

	// ErrInUse возвращается при удалении продукта, на который ссылаются планы
	ErrInUse = errors.New("record is in use")

	// ErrProductMissing возвращается, когда позиция плана ссылается на удалённый продукт
	ErrProductMissing = errors.New("referenced food product is missing")
)

// Storage объединяет все хранилища приложения (memory или postgres)
type Storage interface {
	MembersStorage
	FoodProductsStorage
	NutritionPlansStorage
	UserNutritionPlansStorage
	MembershipsStorage
	ExportsStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}

// Роли участников
const (
	RoleMember = "member"
	RoleCoach  = "coach"
	RoleAdmin  = "admin"
)

// Member — участник клуба
type Member struct {
	ID                  string
	Email               string
	Name                string
	Role                string // member, coach, admin
	MembershipPlanID    *uuid.UUID
	MembershipExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MembersStorage — интерфейс для работы с участниками
type MembersStorage interface {
	// GetMember возвращает участника по ID
	GetMember(ctx context.Context, id string) (*Member, error)

	// UpsertMemberByEmail создаёт участника или возвращает существующего по email
	UpsertMemberByEmail(ctx context.Context, member *Member) error

	// UpdateMember обновляет имя и роль
	UpdateMember(ctx context.Context, member *Member) error

	// SetMembership назначает участнику план членства (nil снимает)
	SetMembership(ctx context.Context, memberID string, planID *uuid.UUID, expiresAt *time.Time) error

	// ListMembers возвращает участников с пагинацией
	ListMembers(ctx context.Context, limit, offset int) ([]Member, error)
}

// FoodProduct — продукт с профилем на 100 г
type FoodProduct struct {
	ID          uuid.UUID
	Name        string
	Per100      nutricalc.Per100
	Fiber       *float64
	Sugar       *float64
	IsSystem    bool
	OwnerUserID string // пусто для системных продуктов
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FoodProductsStorage — интерфейс для каталога продуктов
type FoodProductsStorage interface {
	// ListFoodProducts возвращает системные продукты и продукты владельца (query — подстрока имени)
	ListFoodProducts(ctx context.Context, ownerUserID, query string) ([]FoodProduct, error)

	// GetFoodProduct возвращает продукт по ID
	GetFoodProduct(ctx context.Context, id uuid.UUID) (*FoodProduct, error)

	// CreateFoodProduct создаёт продукт
	CreateFoodProduct(ctx context.Context, product *FoodProduct) error

	// UpdateFoodProduct обновляет продукт (уже добавленные в планы позиции не меняются)
	UpdateFoodProduct(ctx context.Context, product *FoodProduct) error

	// DeleteFoodProduct удаляет продукт; ErrInUse, если на него ссылается план
	DeleteFoodProduct(ctx context.Context, id uuid.UUID) error
}

// NutritionPlan — план питания с деревом дней
type NutritionPlan struct {
	ID               uuid.UUID
	Name             string
	Description      string
	OwnerUserID      string
	IsSystem         bool
	IsPublished      bool
	MembershipPlanID *uuid.UUID // nil — доступен всем
	Days             []NutritionPlanDay
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NutritionPlanDay — день плана
type NutritionPlanDay struct {
	DayNumber int
	Meals     []NutritionPlanMeal
}

// NutritionPlanMeal — приём пищи
type NutritionPlanMeal struct {
	MealNumber int
	Name       string
	Items      []NutritionPlanItem
}

// NutritionPlanItem — позиция приёма пищи (снимок продукта)
type NutritionPlanItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    float64
	Per100      nutricalc.Per100
	Nutrition   nutricalc.Macros
}

// NutritionPlanFilter — фильтр списка планов
type NutritionPlanFilter struct {
	OwnerUserID      string // планы владельца
	IncludePublished bool   // плюс опубликованные планы других авторов
}

// NutritionPlansStorage — интерфейс для планов питания
type NutritionPlansStorage interface {
	// CreateNutritionPlan сохраняет план вместе с деревом
	CreateNutritionPlan(ctx context.Context, plan *NutritionPlan) error

	// GetNutritionPlan возвращает план с деревом
	GetNutritionPlan(ctx context.Context, id uuid.UUID) (*NutritionPlan, error)

	// UpdateNutritionPlan полностью заменяет план и его дерево
	UpdateNutritionPlan(ctx context.Context, plan *NutritionPlan) error

	// DeleteNutritionPlan удаляет план (каскадно)
	DeleteNutritionPlan(ctx context.Context, id uuid.UUID) error

	// ListNutritionPlans возвращает планы без дерева
	ListNutritionPlans(ctx context.Context, filter NutritionPlanFilter) ([]NutritionPlan, error)
}

// UserNutritionPlan — рассчитанный персональный план
type UserNutritionPlan struct {
	ID             uuid.UUID
	UserID         string
	Goal           string
	ActivityLevel  string
	Gender         string
	Age            int
	HeightCm       float64
	WeightKg       float64
	BMR            float64
	TDEE           float64
	TargetCalories float64
	ProteinG       float64
	FatG           float64
	CarbsG         float64
	Status         string // active, paused
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserNutritionPlansStorage — интерфейс для персональных планов
type UserNutritionPlansStorage interface {
	// CreateUserNutritionPlan сохраняет план; активный план ставит на паузу остальные
	CreateUserNutritionPlan(ctx context.Context, plan *UserNutritionPlan) error

	// GetUserNutritionPlan возвращает план по ID
	GetUserNutritionPlan(ctx context.Context, id uuid.UUID) (*UserNutritionPlan, error)

	// ListUserNutritionPlans возвращает планы пользователя (новые первыми)
	ListUserNutritionPlans(ctx context.Context, userID string) ([]UserNutritionPlan, error)

	// SetUserNutritionPlanStatus меняет статус; active ставит на паузу остальные планы пользователя
	SetUserNutritionPlanStatus(ctx context.Context, userID string, id uuid.UUID, status string) error

	// DeleteUserNutritionPlan удаляет план
	DeleteUserNutritionPlan(ctx context.Context, userID string, id uuid.UUID) error
}

// MembershipPlan — тариф членства
type MembershipPlan struct {
	ID           uuid.UUID
	Name         string
	Description  string
	PriceCents   int64
	Currency     string
	DurationDays int
	Features     []byte // JSON как есть; разбирается в memberships
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MembershipsStorage — интерфейс для тарифов
type MembershipsStorage interface {
	// ListMembershipPlans возвращает тарифы (onlyActive — только активные)
	ListMembershipPlans(ctx context.Context, onlyActive bool) ([]MembershipPlan, error)

	// GetMembershipPlan возвращает тариф по ID
	GetMembershipPlan(ctx context.Context, id uuid.UUID) (*MembershipPlan, error)

	// CreateMembershipPlan создаёт тариф
	CreateMembershipPlan(ctx context.Context, plan *MembershipPlan) error

	// UpdateMembershipPlan обновляет тариф
	UpdateMembershipPlan(ctx context.Context, plan *MembershipPlan) error
}

// ExportMeta — метаданные выгрузки плана
type ExportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	PlanID      uuid.UUID
	Format      string  // "pdf" or "csv"
	ObjectKey   *string // ключ в blob store
	SizeBytes   int64
	Status      string // "ready" or "failed"
	CreatedAt   time.Time
}

// ExportsStorage — интерфейс для выгрузок
type ExportsStorage interface {
	// CreateExport сохраняет метаданные выгрузки
	CreateExport(ctx context.Context, export *ExportMeta) error

	// GetExport возвращает выгрузку по ID
	GetExport(ctx context.Context, id uuid.UUID) (*ExportMeta, error)

	// ListExports возвращает выгрузки пользователя с пагинацией
	ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]ExportMeta, error)

	// DeleteExport удаляет метаданные
	DeleteExport(ctx context.Context, id uuid.UUID) error
}
