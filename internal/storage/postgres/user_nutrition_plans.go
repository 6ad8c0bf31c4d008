package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userNutritionPlanColumns = `id, user_id, goal, activity_level, gender, age, height_cm, weight_kg,
	bmr, tdee, target_calories, protein_g, fat_g, carbs_g, status, created_at, updated_at`

func scanUserNutritionPlan(row pgx.Row) (*storage.UserNutritionPlan, error) {
	var u storage.UserNutritionPlan
	err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.Goal,
		&u.ActivityLevel,
		&u.Gender,
		&u.Age,
		&u.HeightCm,
		&u.WeightKg,
		&u.BMR,
		&u.TDEE,
		&u.TargetCalories,
		&u.ProteinG,
		&u.FatG,
		&u.CarbsG,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStorage) CreateUserNutritionPlan(ctx context.Context, plan *storage.UserNutritionPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if plan.Status == "active" {
		if err := pauseOtherUserPlans(ctx, tx, plan.UserID, plan.ID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO user_nutrition_plans (id, user_id, goal, activity_level, gender, age, height_cm, weight_kg,
		                                  bmr, tdee, target_calories, protein_g, fat_g, carbs_g, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Goal,
		plan.ActivityLevel,
		plan.Gender,
		plan.Age,
		plan.HeightCm,
		plan.WeightKg,
		plan.BMR,
		plan.TDEE,
		plan.TargetCalories,
		plan.ProteinG,
		plan.FatG,
		plan.CarbsG,
		plan.Status,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user nutrition plan: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStorage) GetUserNutritionPlan(ctx context.Context, id uuid.UUID) (*storage.UserNutritionPlan, error) {
	query := `SELECT ` + userNutritionPlanColumns + ` FROM user_nutrition_plans WHERE id = $1`

	u, err := scanUserNutritionPlan(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user nutrition plan: %w", notFound(err))
	}
	return u, nil
}

func (p *PostgresStorage) ListUserNutritionPlans(ctx context.Context, userID string) ([]storage.UserNutritionPlan, error) {
	query := `SELECT ` + userNutritionPlanColumns + ` FROM user_nutrition_plans WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user nutrition plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.UserNutritionPlan{}
	for rows.Next() {
		u, err := scanUserNutritionPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user nutrition plan: %w", err)
		}
		plans = append(plans, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user nutrition plans: %w", err)
	}
	return plans, nil
}

func (p *PostgresStorage) SetUserNutritionPlanStatus(ctx context.Context, userID string, id uuid.UUID, status string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if status == "active" {
		if err := pauseOtherUserPlans(ctx, tx, userID, id); err != nil {
			return err
		}
	}

	result, err := tx.Exec(ctx,
		`UPDATE user_nutrition_plans SET status = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		id, userID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update user nutrition plan status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStorage) DeleteUserNutritionPlan(ctx context.Context, userID string, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM user_nutrition_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user nutrition plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func pauseOtherUserPlans(ctx context.Context, tx pgx.Tx, userID string, keep uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE user_nutrition_plans SET status = 'paused', updated_at = NOW()
		 WHERE user_id = $1 AND id <> $2 AND status = 'active'`,
		userID, keep,
	)
	if err != nil {
		return fmt.Errorf("failed to pause user nutrition plans: %w", err)
	}
	return nil
}
