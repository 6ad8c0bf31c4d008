package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const membershipPlanColumns = `id, name, description, price_cents, currency, duration_days, features, is_active, created_at, updated_at`

func scanMembershipPlan(row pgx.Row) (*storage.MembershipPlan, error) {
	var mp storage.MembershipPlan
	err := row.Scan(
		&mp.ID,
		&mp.Name,
		&mp.Description,
		&mp.PriceCents,
		&mp.Currency,
		&mp.DurationDays,
		&mp.Features,
		&mp.IsActive,
		&mp.CreatedAt,
		&mp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

func (p *PostgresStorage) ListMembershipPlans(ctx context.Context, onlyActive bool) ([]storage.MembershipPlan, error) {
	query := `
		SELECT ` + membershipPlanColumns + `
		FROM membership_plans
		WHERE NOT $1 OR is_active
		ORDER BY price_cents ASC
	`

	rows, err := p.pool.Query(ctx, query, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.MembershipPlan{}
	for rows.Next() {
		mp, err := scanMembershipPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership plan: %w", err)
		}
		plans = append(plans, *mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership plans: %w", err)
	}
	return plans, nil
}

func (p *PostgresStorage) GetMembershipPlan(ctx context.Context, id uuid.UUID) (*storage.MembershipPlan, error) {
	query := `SELECT ` + membershipPlanColumns + ` FROM membership_plans WHERE id = $1`

	mp, err := scanMembershipPlan(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get membership plan: %w", notFound(err))
	}
	return mp, nil
}

func (p *PostgresStorage) CreateMembershipPlan(ctx context.Context, plan *storage.MembershipPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	query := `
		INSERT INTO membership_plans (id, name, description, price_cents, currency, duration_days, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := p.pool.QueryRow(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.PriceCents,
		plan.Currency,
		plan.DurationDays,
		jsonOrEmptyArray(plan.Features),
		plan.IsActive,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create membership plan: %w", err)
	}
	return nil
}

func (p *PostgresStorage) UpdateMembershipPlan(ctx context.Context, plan *storage.MembershipPlan) error {
	query := `
		UPDATE membership_plans
		SET name = $2, description = $3, price_cents = $4, currency = $5, duration_days = $6,
		    features = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := p.pool.QueryRow(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.PriceCents,
		plan.Currency,
		plan.DurationDays,
		jsonOrEmptyArray(plan.Features),
		plan.IsActive,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update membership plan: %w", notFound(err))
	}
	return nil
}

// jsonOrEmptyArray возвращает строку JSON для колонки jsonb
func jsonOrEmptyArray(raw []byte) string {
	if len(raw) == 0 {
		return "[]"
	}
	return string(raw)
}
