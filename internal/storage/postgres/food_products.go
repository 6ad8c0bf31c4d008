package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const foodProductColumns = `id, name, calories, protein, carbs, fat, fiber, sugar, is_system, owner_user_id, created_at, updated_at`

func scanFoodProduct(row pgx.Row) (*storage.FoodProduct, error) {
	var fp storage.FoodProduct
	err := row.Scan(
		&fp.ID,
		&fp.Name,
		&fp.Per100.Calories,
		&fp.Per100.Protein,
		&fp.Per100.Carbs,
		&fp.Per100.Fat,
		&fp.Fiber,
		&fp.Sugar,
		&fp.IsSystem,
		&fp.OwnerUserID,
		&fp.CreatedAt,
		&fp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (p *PostgresStorage) ListFoodProducts(ctx context.Context, ownerUserID, query string) ([]storage.FoodProduct, error) {
	sql := `
		SELECT ` + foodProductColumns + `
		FROM food_products
		WHERE (is_system OR owner_user_id = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY is_system DESC, name ASC
	`

	rows, err := p.pool.Query(ctx, sql, ownerUserID, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to list food products: %w", err)
	}
	defer rows.Close()

	products := []storage.FoodProduct{}
	for rows.Next() {
		fp, err := scanFoodProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food product: %w", err)
		}
		products = append(products, *fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food products: %w", err)
	}
	return products, nil
}

func (p *PostgresStorage) GetFoodProduct(ctx context.Context, id uuid.UUID) (*storage.FoodProduct, error) {
	query := `SELECT ` + foodProductColumns + ` FROM food_products WHERE id = $1`

	fp, err := scanFoodProduct(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get food product: %w", notFound(err))
	}
	return fp, nil
}

func (p *PostgresStorage) CreateFoodProduct(ctx context.Context, product *storage.FoodProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	query := `
		INSERT INTO food_products (id, name, calories, protein, carbs, fat, fiber, sugar, is_system, owner_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := p.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Per100.Calories,
		product.Per100.Protein,
		product.Per100.Carbs,
		product.Per100.Fat,
		product.Fiber,
		product.Sugar,
		product.IsSystem,
		product.OwnerUserID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create food product: %w", err)
	}
	return nil
}

func (p *PostgresStorage) UpdateFoodProduct(ctx context.Context, product *storage.FoodProduct) error {
	query := `
		UPDATE food_products
		SET name = $2, calories = $3, protein = $4, carbs = $5, fat = $6, fiber = $7, sugar = $8,
		    is_system = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := p.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Per100.Calories,
		product.Per100.Protein,
		product.Per100.Carbs,
		product.Per100.Fat,
		product.Fiber,
		product.Sugar,
		product.IsSystem,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update food product: %w", notFound(err))
	}
	return nil
}

func (p *PostgresStorage) DeleteFoodProduct(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM food_products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrInUse
		}
		return fmt.Errorf("failed to delete food product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
