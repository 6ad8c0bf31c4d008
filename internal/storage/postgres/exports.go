package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const exportColumns = `id, owner_user_id, plan_id, format, object_key, size_bytes, status, created_at`

func scanExport(row pgx.Row) (*storage.ExportMeta, error) {
	var e storage.ExportMeta
	err := row.Scan(
		&e.ID,
		&e.OwnerUserID,
		&e.PlanID,
		&e.Format,
		&e.ObjectKey,
		&e.SizeBytes,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExport сохраняет только метаданные; данные лежат в S3
func (p *PostgresStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}

	query := `
		INSERT INTO plan_exports (id, owner_user_id, plan_id, format, object_key, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := p.pool.QueryRow(ctx, query,
		export.ID,
		export.OwnerUserID,
		export.PlanID,
		export.Format,
		export.ObjectKey,
		export.SizeBytes,
		export.Status,
	).Scan(&export.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	return nil
}

func (p *PostgresStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	query := `SELECT ` + exportColumns + ` FROM plan_exports WHERE id = $1`

	e, err := scanExport(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", notFound(err))
	}
	return e, nil
}

func (p *PostgresStorage) ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ExportMeta, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM plan_exports
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	exports := []storage.ExportMeta{}
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exports: %w", err)
	}
	return exports, nil
}

func (p *PostgresStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM plan_exports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
