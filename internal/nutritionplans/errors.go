package nutritionplans

import (
	"errors"
	"fmt"
)

var (
	ErrPlanNotFound       = errors.New("nutrition plan not found")
	ErrForbidden          = errors.New("not allowed to modify this nutrition plan")
	ErrMembershipRequired = errors.New("nutrition plan requires a membership")
	ErrPositionNotFound   = errors.New("day, meal or item not found")
	ErrPersistTimeout     = errors.New("persistence timed out")
	ErrProductNotFound    = errors.New("food product not found")
)

// ValidationError — план нельзя сохранить; в хранилище ничего не пишется.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StorageError оборачивает любую ошибку хранилища при сохранении плана.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("nutrition plan %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
