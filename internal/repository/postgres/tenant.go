package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/estatehub/internal/models"
)

type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

func (s *TenantStore) Create(ctx context.Context, name, slug string) (*models.Tenant, error) {
	query := `
		INSERT INTO tenants (name, slug, is_active, created_at)
		VALUES ($1, $2, true, now())
		RETURNING id, name, slug, is_active, created_at`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, name, slug).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantStore) GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.getOne(ctx, "id = $1", tenantID)
}

func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.getOne(ctx, "slug = $1", slug)
}

func (s *TenantStore) getOne(ctx context.Context, cond string, arg any) (*models.Tenant, error) {
	query := `
		SELECT id, name, slug, is_active, created_at
		FROM tenants
		WHERE ` + cond + ` AND is_active`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}
