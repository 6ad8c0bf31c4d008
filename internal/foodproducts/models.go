package foodproducts

import (
	"time"

	"github.com/google/uuid"
)

// FoodProductDTO — продукт каталога; значения на 100 г
type FoodProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Calories    float64   `json:"calories"`
	Protein     float64   `json:"protein"`
	Carbs       float64   `json:"carbs"`
	Fat         float64   `json:"fat"`
	Fiber       *float64  `json:"fiber,omitempty"`
	Sugar       *float64  `json:"sugar,omitempty"`
	IsSystem    bool      `json:"is_system"`
	OwnerUserID string    `json:"owner_user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FoodProductRequest — тело POST и PUT /v1/food-products
type FoodProductRequest struct {
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
	Fiber    *float64 `json:"fiber"`
	Sugar    *float64 `json:"sugar"`
	IsSystem bool     `json:"is_system"`
}

type FoodProductsResponse struct {
	Products []FoodProductDTO `json:"products"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
