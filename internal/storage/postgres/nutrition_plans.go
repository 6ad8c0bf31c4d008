package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const nutritionPlanColumns = `id, name, description, owner_user_id, is_system, is_published, membership_plan_id, created_at, updated_at`

var nutritionPlanItemColumns = []string{
	"meal_id", "position", "product_id", "product_name", "quantity",
	"calories_per_100", "protein_per_100", "carbs_per_100", "fat_per_100",
	"calories", "protein", "carbs", "fat",
}

func scanNutritionPlan(row pgx.Row) (*storage.NutritionPlan, error) {
	var plan storage.NutritionPlan
	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.OwnerUserID,
		&plan.IsSystem,
		&plan.IsPublished,
		&plan.MembershipPlanID,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *PostgresStorage) CreateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO nutrition_plans (id, name, description, owner_user_id, is_system, is_published, membership_plan_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.OwnerUserID,
		plan.IsSystem,
		plan.IsPublished,
		plan.MembershipPlanID,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create nutrition plan: %w", err)
	}

	if err := insertPlanTree(ctx, tx, plan.ID, plan.Days); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStorage) UpdateNutritionPlan(ctx context.Context, plan *storage.NutritionPlan) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE nutrition_plans
		SET name = $2, description = $3, is_system = $4, is_published = $5, membership_plan_id = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING owner_user_id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.IsSystem,
		plan.IsPublished,
		plan.MembershipPlanID,
	).Scan(&plan.OwnerUserID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update nutrition plan: %w", notFound(err))
	}

	// Полная замена дерева: дни удаляются каскадно вместе с приёмами и позициями
	if _, err := tx.Exec(ctx, `DELETE FROM nutrition_plan_days WHERE plan_id = $1`, plan.ID); err != nil {
		return fmt.Errorf("failed to delete nutrition plan days: %w", err)
	}

	if err := insertPlanTree(ctx, tx, plan.ID, plan.Days); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertPlanTree вставляет дни и приёмы по одному, а позиции — через COPY
func insertPlanTree(ctx context.Context, tx pgx.Tx, planID uuid.UUID, days []storage.NutritionPlanDay) error {
	var itemRows [][]any

	for _, day := range days {
		var dayID uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO nutrition_plan_days (plan_id, day_number) VALUES ($1, $2) RETURNING id`,
			planID, day.DayNumber,
		).Scan(&dayID)
		if err != nil {
			return fmt.Errorf("failed to insert nutrition plan day: %w", err)
		}

		for _, meal := range day.Meals {
			var mealID uuid.UUID
			err := tx.QueryRow(ctx,
				`INSERT INTO nutrition_plan_meals (day_id, meal_number, name) VALUES ($1, $2, $3) RETURNING id`,
				dayID, meal.MealNumber, meal.Name,
			).Scan(&mealID)
			if err != nil {
				return fmt.Errorf("failed to insert nutrition plan meal: %w", err)
			}

			for pos, it := range meal.Items {
				itemRows = append(itemRows, []any{
					mealID, pos, it.ProductID, it.ProductName, it.Quantity,
					it.Per100.Calories, it.Per100.Protein, it.Per100.Carbs, it.Per100.Fat,
					it.Nutrition.Calories, it.Nutrition.Protein, it.Nutrition.Carbs, it.Nutrition.Fat,
				})
			}
		}
	}

	if len(itemRows) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"nutrition_plan_items"}, nutritionPlanItemColumns, pgx.CopyFromRows(itemRows))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to insert nutrition plan items: %w", storage.ErrProductMissing)
		}
		return fmt.Errorf("failed to insert nutrition plan items: %w", err)
	}
	return nil
}

func (p *PostgresStorage) GetNutritionPlan(ctx context.Context, id uuid.UUID) (*storage.NutritionPlan, error) {
	query := `SELECT ` + nutritionPlanColumns + ` FROM nutrition_plans WHERE id = $1`

	plan, err := scanNutritionPlan(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition plan: %w", notFound(err))
	}

	treeQuery := `
		SELECT d.day_number, m.meal_number, m.name,
		       i.product_id, i.product_name, i.quantity,
		       i.calories_per_100, i.protein_per_100, i.carbs_per_100, i.fat_per_100,
		       i.calories, i.protein, i.carbs, i.fat
		FROM nutrition_plan_days d
		LEFT JOIN nutrition_plan_meals m ON m.day_id = d.id
		LEFT JOIN nutrition_plan_items i ON i.meal_id = m.id
		WHERE d.plan_id = $1
		ORDER BY d.day_number, m.meal_number, i.position
	`

	rows, err := p.pool.Query(ctx, treeQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition plan tree: %w", err)
	}
	defer rows.Close()

	plan.Days = []storage.NutritionPlanDay{}
	for rows.Next() {
		var (
			dayNumber  int
			mealNumber *int
			mealName   *string
			productID  *uuid.UUID
			name       *string
			values     [9]*float64
		)
		err := rows.Scan(
			&dayNumber, &mealNumber, &mealName,
			&productID, &name,
			&values[0], &values[1], &values[2], &values[3], &values[4],
			&values[5], &values[6], &values[7], &values[8],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nutrition plan row: %w", err)
		}

		if n := len(plan.Days); n == 0 || plan.Days[n-1].DayNumber != dayNumber {
			plan.Days = append(plan.Days, storage.NutritionPlanDay{DayNumber: dayNumber, Meals: []storage.NutritionPlanMeal{}})
		}
		day := &plan.Days[len(plan.Days)-1]
		if mealNumber == nil {
			continue
		}

		if n := len(day.Meals); n == 0 || day.Meals[n-1].MealNumber != *mealNumber {
			day.Meals = append(day.Meals, storage.NutritionPlanMeal{MealNumber: *mealNumber, Name: deref(mealName), Items: []storage.NutritionPlanItem{}})
		}
		meal := &day.Meals[len(day.Meals)-1]
		if productID == nil {
			continue
		}

		item := storage.NutritionPlanItem{ProductID: *productID, ProductName: deref(name), Quantity: derefFloat(values[0])}
		item.Per100.Calories = derefFloat(values[1])
		item.Per100.Protein = derefFloat(values[2])
		item.Per100.Carbs = derefFloat(values[3])
		item.Per100.Fat = derefFloat(values[4])
		item.Nutrition.Calories = derefFloat(values[5])
		item.Nutrition.Protein = derefFloat(values[6])
		item.Nutrition.Carbs = derefFloat(values[7])
		item.Nutrition.Fat = derefFloat(values[8])
		meal.Items = append(meal.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nutrition plan rows: %w", err)
	}

	return plan, nil
}

func (p *PostgresStorage) DeleteNutritionPlan(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM nutrition_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete nutrition plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) ListNutritionPlans(ctx context.Context, filter storage.NutritionPlanFilter) ([]storage.NutritionPlan, error) {
	query := `
		SELECT ` + nutritionPlanColumns + `
		FROM nutrition_plans
		WHERE ($1 <> '' AND owner_user_id = $1) OR ($2 AND is_published)
		ORDER BY updated_at DESC
	`

	rows, err := p.pool.Query(ctx, query, filter.OwnerUserID, filter.IncludePublished)
	if err != nil {
		return nil, fmt.Errorf("failed to list nutrition plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.NutritionPlan{}
	for rows.Next() {
		plan, err := scanNutritionPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nutrition plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nutrition plans: %w", err)
	}
	return plans, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
