package storage

import (
	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/google/uuid"
)

// SystemFoodProducts возвращает базовый каталог продуктов.
// Те же строки вставляет миграция 00002_seed_food_products.sql.
func SystemFoodProducts() []FoodProduct {
	return []FoodProduct{
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000001", "Vištienos krūtinėlė", 165, 31, 0, 3.6),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000002", "Ryžiai (virti)", 130, 2.7, 28, 0.3),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000003", "Avižiniai dribsniai", 379, 13.2, 67.7, 6.5),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000004", "Kiaušinis", 143, 12.6, 0.7, 9.5),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000005", "Varškė 5%", 121, 17, 1.8, 5),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000006", "Bananas", 89, 1.1, 22.8, 0.3),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000007", "Lašiša", 208, 20, 0, 13),
		systemProduct("6f1c1a52-0d3e-4b8a-9a51-000000000008", "Brokoliai", 34, 2.8, 6.6, 0.4),
	}
}

func systemProduct(id, name string, kcal, protein, carbs, fat float64) FoodProduct {
	return FoodProduct{
		ID:       uuid.MustParse(id),
		Name:     name,
		Per100:   nutricalc.Per100{Calories: kcal, Protein: protein, Carbs: carbs, Fat: fat},
		IsSystem: true,
	}
}
