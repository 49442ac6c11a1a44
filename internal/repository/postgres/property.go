package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/geo"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

const propertyColumns = `
	id, tenant_id, owner_id, title, description,
	address, city, state, country, latitude, longitude,
	price, images, type, metadata, status,
	views, viewed_by, favorites_count, favorited_by,
	published_at, disabled_at, disabled_by, deleted_at, created_at, updated_at`

// scope is the WHERE prefix every single-record statement starts with.
const scope = `id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

type PropertyStore struct {
	pool *pgxpool.Pool
}

func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p         models.Property
		lat, lng  *float64
		propType  string
		status    string
		metadata  map[string]any
		viewedBy  []uuid.UUID
		favorites []uuid.UUID
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.OwnerID, &p.Title, &p.Description,
		&p.Location.Address, &p.Location.City, &p.Location.State, &p.Location.Country, &lat, &lng,
		&p.Price, &p.Images, &propType, &metadata, &status,
		&p.Views, &viewedBy, &p.FavoritesCount, &favorites,
		&p.PublishedAt, &p.DisabledAt, &p.DisabledBy, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.Location.Coordinates = &models.Coordinates{Longitude: *lng, Latitude: *lat}
	}
	p.Type = models.PropertyType(propType)
	p.Status = models.PropertyStatus(status)
	p.Metadata = metadata
	p.ViewedBy = viewedBy
	p.FavoritedBy = favorites
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func collectProperties(rows pgx.Rows) ([]models.Property, error) {
	defer rows.Close()

	properties := make([]models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return properties, nil
}

// locationArgs flattens a location into column values. Coordinates are
// stored as nullable latitude/longitude plus a geohash for prefiltering.
func locationArgs(l models.Location) (lat, lng *float64, hash *string) {
	if l.Coordinates == nil {
		return nil, nil, nil
	}
	c := *l.Coordinates
	h := geo.Encode(c)
	return &c.Latitude, &c.Longitude, &h
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

func nonNilMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func (s *PropertyStore) Create(ctx context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error) {
	query := `
		INSERT INTO properties (
			tenant_id, owner_id, title, description,
			address, city, state, country, latitude, longitude, geohash,
			price, images, type, metadata, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'draft', now(), now())
		RETURNING ` + propertyColumns

	lat, lng, hash := locationArgs(p.Location)
	created, err := scanProperty(s.pool.QueryRow(ctx, query,
		tenantID, p.OwnerID, p.Title, p.Description,
		p.Location.Address, p.Location.City, p.Location.State, p.Location.Country, lat, lng, hash,
		p.Price, nonNilImages(p.Images), string(p.Type), nonNilMetadata(p.Metadata),
	))
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	return created, nil
}

func (s *PropertyStore) Update(ctx context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error) {
	// The status condition keeps the edit lock atomic: a publish that lands
	// between the caller's read and this write makes the update miss.
	query := `
		UPDATE properties SET
			title = $3, description = $4,
			address = $5, city = $6, state = $7, country = $8,
			latitude = $9, longitude = $10, geohash = $11,
			price = $12, images = $13, type = $14, metadata = $15,
			updated_at = now()
		WHERE ` + scope + ` AND status IN ('draft', 'archived')
		RETURNING ` + propertyColumns

	lat, lng, hash := locationArgs(p.Location)
	updated, err := scanProperty(s.pool.QueryRow(ctx, query,
		p.ID, tenantID, p.Title, p.Description,
		p.Location.Address, p.Location.City, p.Location.State, p.Location.Country, lat, lng, hash,
		p.Price, nonNilImages(p.Images), string(p.Type), nonNilMetadata(p.Metadata),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMiss(ctx, tenantID, p.ID, (*models.Property).EnsureEditable)
		}
		return nil, fmt.Errorf("update property: %w", err)
	}
	return updated, nil
}

func (s *PropertyStore) SoftDelete(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	query := `
		UPDATE properties SET deleted_at = now(), updated_at = now()
		WHERE ` + scope

	tag, err := s.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("soft delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("property not found")
	}
	return nil
}

func (s *PropertyStore) Publish(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback(ctx)

	// FOR UPDATE serializes concurrent publishers of the same row: the
	// second one blocks here and then sees status = published.
	p, err := scanProperty(tx.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE `+scope+` FOR UPDATE`,
		id, tenantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("property not found")
		}
		return nil, fmt.Errorf("lock property: %w", err)
	}

	if err := p.Publish(time.Now().UTC()); err != nil {
		return nil, err
	}

	published, err := scanProperty(tx.QueryRow(ctx, `
		UPDATE properties SET status = 'published', published_at = $3, updated_at = $3
		WHERE `+scope+`
		RETURNING `+propertyColumns,
		id, tenantID, *p.PublishedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("publish property: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return published, nil
}

func (s *PropertyStore) Archive(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	query := `
		UPDATE properties SET status = 'archived', updated_at = now()
		WHERE ` + scope + ` AND status IN ('draft', 'published')
		RETURNING ` + propertyColumns

	return s.transition(ctx, tenantID, id, "archive", query, (*models.Property).CheckArchivable)
}

func (s *PropertyStore) Disable(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, disabledBy uuid.UUID) (*models.Property, error) {
	query := `
		UPDATE properties SET status = 'disabled', disabled_at = now(), disabled_by = $3, updated_at = now()
		WHERE ` + scope + ` AND status <> 'disabled'
		RETURNING ` + propertyColumns

	return s.transition(ctx, tenantID, id, "disable", query, (*models.Property).CheckDisableable, disabledBy)
}

func (s *PropertyStore) Enable(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	query := `
		UPDATE properties SET status = 'draft', disabled_at = NULL, disabled_by = NULL, updated_at = now()
		WHERE ` + scope + ` AND status = 'disabled'
		RETURNING ` + propertyColumns

	return s.transition(ctx, tenantID, id, "enable", query, (*models.Property).CheckEnableable)
}

// transition runs a single conditional status update. When no row
// matches it works out whether the listing is missing or in the wrong
// state.
func (s *PropertyStore) transition(
	ctx context.Context,
	tenantID, id uuid.UUID,
	verb, query string,
	check func(*models.Property) error,
	extra ...any,
) (*models.Property, error) {
	args := append([]any{id, tenantID}, extra...)
	p, err := scanProperty(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMiss(ctx, tenantID, id, check)
		}
		return nil, fmt.Errorf("%s property: %w", verb, err)
	}
	return p, nil
}

// explainMiss reloads a listing after a conditional write matched nothing.
func (s *PropertyStore) explainMiss(ctx context.Context, tenantID, id uuid.UUID, check func(*models.Property) error) error {
	p, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NotFound("property not found")
	}
	if err := check(p); err != nil {
		return err
	}
	// The row matched the guard on reload, so it changed under us.
	return apperr.Validation("property was modified concurrently, please retry")
}

func (s *PropertyStore) GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE ` + scope

	p, err := scanProperty(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) ListByOwner(ctx context.Context, tenantID uuid.UUID, ownerID uuid.UUID, f repository.OwnerFilter) (*repository.PropertyPage, error) {
	qb := newQueryBuilder(tenantID)
	qb.addCondition("owner_id = %s", ownerID)
	if f.Status != nil {
		qb.addCondition("status = %s", string(*f.Status))
	}
	if f.HideDisabled {
		qb.conditions = append(qb.conditions, "status <> 'disabled'")
	}
	return s.page(ctx, "list properties by owner", qb, "ORDER BY created_at DESC, id", f.Paging)
}

func (s *PropertyStore) List(ctx context.Context, tenantID uuid.UUID, f repository.PropertyFilter) (*repository.PropertyPage, error) {
	f = f.Normalize()
	qb, orderBy := applyPropertyFilter(tenantID, f)
	return s.page(ctx, "list properties", qb, orderBy, repository.Paging{Page: f.Page, Limit: f.Limit})
}

func (s *PropertyStore) ListFavorites(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, p repository.Paging) (*repository.PropertyPage, error) {
	qb := newQueryBuilder(tenantID)
	qb.conditions = append(qb.conditions, "status = 'published'")
	qb.addCondition("%s = ANY(favorited_by)", userID)
	return s.page(ctx, "list favorites", qb, "ORDER BY updated_at DESC, id", p)
}

// page counts the rows matching qb, then fetches one page of them in
// orderBy order. orderBy never carries raw client input.
func (s *PropertyStore) page(ctx context.Context, verb string, qb *queryBuilder, orderBy string, p repository.Paging) (*repository.PropertyPage, error) {
	p = p.Normalize()

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM properties `+qb.where(), qb.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("%s: count: %w", verb, err)
	}

	limit := qb.arg(p.Limit)
	offset := qb.arg(p.Offset())
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM properties %s %s LIMIT %s OFFSET %s`,
			propertyColumns, qb.where(), orderBy, limit, offset),
		qb.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", verb, err)
	}
	properties, err := collectProperties(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PropertyPage{
		Data:  properties,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

func (s *PropertyStore) AddFavorite(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error) {
	// Set and count change in one statement; the NOT ANY guard makes a
	// repeated add match nothing instead of double counting.
	query := `
		UPDATE properties SET
			favorited_by = array_append(favorited_by, $3),
			favorites_count = cardinality(favorited_by) + 1,
			updated_at = now()
		WHERE ` + scope + ` AND status = 'published' AND NOT ($3 = ANY(favorited_by))
		RETURNING ` + propertyColumns

	return s.favorite(ctx, tenantID, id, "add favorite", query, userID)
}

func (s *PropertyStore) RemoveFavorite(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error) {
	query := `
		UPDATE properties SET
			favorited_by = array_remove(favorited_by, $3),
			favorites_count = greatest(cardinality(array_remove(favorited_by, $3)), 0),
			updated_at = now()
		WHERE ` + scope + ` AND status = 'published' AND $3 = ANY(favorited_by)
		RETURNING ` + propertyColumns

	return s.favorite(ctx, tenantID, id, "remove favorite", query, userID)
}

// favorite runs an idempotent favorite mutation. A miss on a published
// listing means the set already had the desired shape.
func (s *PropertyStore) favorite(ctx context.Context, tenantID, id uuid.UUID, verb, query string, userID uuid.UUID) (*models.Property, error) {
	p, err := scanProperty(s.pool.QueryRow(ctx, query, id, tenantID, userID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", verb, err)
	}

	current, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.NotFound("property not found")
	}
	if err := current.CheckFavoritable(); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *PropertyStore) IsFavorited(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM properties
			WHERE ` + scope + ` AND $3 = ANY(favorited_by)
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, id, tenantID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

func (s *PropertyStore) IncrementViews(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	query := `
		UPDATE properties SET
			views = views + 1,
			viewed_by = array_append(viewed_by, $3)
		WHERE ` + scope + ` AND status = 'published' AND NOT ($3 = ANY(viewed_by))`

	tag, err := s.pool.Exec(ctx, query, id, tenantID, userID)
	if err != nil {
		return false, fmt.Errorf("increment views: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PropertyStore) TenantMetrics(ctx context.Context, tenantID uuid.UUID) (*models.TenantMetrics, error) {
	m := &models.TenantMetrics{
		TenantID:    tenantID,
		ByStatus:    make(map[models.PropertyStatus]int64),
		GeneratedAt: time.Now().UTC(),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*), coalesce(sum(views), 0)::bigint, coalesce(sum(favorites_count), 0)::bigint
		FROM properties
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("aggregate properties: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status           string
			count, views     int64
			favoritesByGroup int64
		)
		if err := rows.Scan(&status, &count, &views, &favoritesByGroup); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		m.ByStatus[models.PropertyStatus(status)] = count
		m.Total += count
		m.TotalViews += views
		m.TotalFavorites += favoritesByGroup
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate: %w", err)
	}

	if m.Recent, err = s.summaries(ctx, tenantID, "created_at DESC"); err != nil {
		return nil, err
	}
	if m.TopViewed, err = s.summaries(ctx, tenantID, "views DESC, created_at DESC"); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PropertyStore) EngagementMetrics(ctx context.Context, tenantID uuid.UUID, since time.Time) (*models.EngagementMetrics, error) {
	m := &models.EngagementMetrics{TenantID: tenantID}
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE created_at >= $2),
			count(*) FILTER (WHERE published_at >= $2),
			coalesce(sum(views) FILTER (WHERE status = 'published'), 0)::bigint,
			coalesce(sum(favorites_count) FILTER (WHERE status = 'published'), 0)::bigint
		FROM properties
		WHERE tenant_id = $1 AND deleted_at IS NULL`, tenantID, since,
	).Scan(&m.PropertiesCreated, &m.PropertiesPublished, &m.TotalViews, &m.TotalFavorites)
	if err != nil {
		return nil, fmt.Errorf("aggregate engagement: %w", err)
	}
	return m, nil
}

// summaries lists the first few listings in the given order. orderBy is
// always a constant from this file.
func (s *PropertyStore) summaries(ctx context.Context, tenantID uuid.UUID, orderBy string) ([]models.PropertySummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, status, views, favorites_count, created_at
		FROM properties
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY `+orderBy+`
		LIMIT $2`, tenantID, models.MetricsListSize)
	if err != nil {
		return nil, fmt.Errorf("list property summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.PropertySummary, 0, models.MetricsListSize)
	for rows.Next() {
		var (
			ps     models.PropertySummary
			status string
		)
		if err := rows.Scan(&ps.ID, &ps.Title, &status, &ps.Views, &ps.FavoritesCount, &ps.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan property summary: %w", err)
		}
		ps.Status = models.PropertyStatus(status)
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property summaries: %w", err)
	}
	return out, nil
}
