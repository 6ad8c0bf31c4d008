package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/fitclub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const memberColumns = `id, email, name, role, membership_plan_id, membership_expires_at, created_at, updated_at`

func scanMember(row pgx.Row) (*storage.Member, error) {
	var m storage.Member
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.Name,
		&m.Role,
		&m.MembershipPlanID,
		&m.MembershipExpiresAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (p *PostgresStorage) GetMember(ctx context.Context, id string) (*storage.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", notFound(err))
	}
	return m, nil
}

func (p *PostgresStorage) UpsertMemberByEmail(ctx context.Context, member *storage.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.Role == "" {
		member.Role = storage.RoleMember
	}

	// DO UPDATE с тем же значением нужен, чтобы RETURNING вернул существующую строку
	query := `
		INSERT INTO members (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ((lower(email))) DO UPDATE SET email = members.email
		RETURNING ` + memberColumns

	m, err := scanMember(p.pool.QueryRow(ctx, query,
		member.ID,
		strings.TrimSpace(member.Email),
		member.Name,
		member.Role,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	*member = *m
	return nil
}

func (p *PostgresStorage) UpdateMember(ctx context.Context, member *storage.Member) error {
	query := `
		UPDATE members SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + memberColumns

	m, err := scanMember(p.pool.QueryRow(ctx, query, member.ID, member.Name, member.Role))
	if err != nil {
		return fmt.Errorf("failed to update member: %w", notFound(err))
	}
	*member = *m
	return nil
}

func (p *PostgresStorage) SetMembership(ctx context.Context, memberID string, planID *uuid.UUID, expiresAt *time.Time) error {
	query := `
		UPDATE members SET membership_plan_id = $2, membership_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := p.pool.Exec(ctx, query, memberID, planID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) ListMembers(ctx context.Context, limit, offset int) ([]storage.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at ASC LIMIT $1 OFFSET $2`

	rows, err := p.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []storage.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}
