package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

const userColumns = `id, tenant_id, email, display_name, password_hash, role, is_active, created_at, updated_at`

// userScope is the WHERE prefix of every single-user statement.
const userScope = `id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// isUniqueViolation reports a clash on idx_users_email_live.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new user row. Postgres generates the UUID and timestamps.
func (s *UserStore) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, passwordHash, role string) (*models.User, error) {
	query := `
		INSERT INTO users (tenant_id, email, display_name, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, tenantID, email, displayName, passwordHash, role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + userScope

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND id = ANY($2) AND deleted_at IS NULL`

	rows, err := s.pool.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	list, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}

// GetByEmail looks up a user by email (globally, not tenant-scoped).
// Login uses it before any tenant is known.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	query := `SELECT count(*) FROM users WHERE tenant_id = $1 AND deleted_at IS NULL`
	if err := s.pool.QueryRow(ctx, query, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) List(ctx context.Context, tenantID uuid.UUID, p repository.Paging) (*repository.UserPage, error) {
	p = p.Normalize()

	total, err := s.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, tenantID, p.Limit, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}
	return &repository.UserPage{Data: users, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (s *UserStore) Update(ctx context.Context, tenantID uuid.UUID, u *models.User) (*models.User, error) {
	query := `
		UPDATE users SET
			email = $3, display_name = $4, role = $5, is_active = $6,
			updated_at = now()
		WHERE ` + userScope + `
		RETURNING ` + userColumns

	return s.write(ctx, "update", query, u.ID, tenantID, u.Email, u.DisplayName, u.Role, u.IsActive)
}

func (s *UserStore) ToggleActive(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error) {
	query := `
		UPDATE users SET is_active = NOT is_active, updated_at = now()
		WHERE ` + userScope + `
		RETURNING ` + userColumns

	return s.write(ctx, "toggle", query, userID, tenantID)
}

func (s *UserStore) SetPassword(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $3, updated_at = now() WHERE ` + userScope
	return s.exec(ctx, "set password for", query, userID, tenantID, passwordHash)
}

func (s *UserStore) SoftDelete(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) error {
	query := `UPDATE users SET deleted_at = now(), updated_at = now() WHERE ` + userScope
	return s.exec(ctx, "soft delete", query, userID, tenantID)
}

// write runs an UPDATE ... RETURNING on one user. args start with the
// user id and tenant id.
func (s *UserStore) write(ctx context.Context, verb, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperr.NotFound("user not found")
		case isUniqueViolation(err):
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("%s user: %w", verb, err)
	}
	return u, nil
}

func (s *UserStore) exec(ctx context.Context, verb, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s user: %w", verb, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
