package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"github.com/lalith-99/estatehub/internal/repository"
	"go.uber.org/zap"
)

// MetricsCache holds recently computed tenant metrics. A miss is
// (nil, nil).
type MetricsCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*models.TenantMetrics, error)
	Set(ctx context.Context, m *models.TenantMetrics) error
}

// PropertyQueries are the read-side listing use-cases.
type PropertyQueries struct {
	repo   repository.PropertyRepository
	users  repository.UserRepository
	cache  MetricsCache
	logger *zap.Logger
	now    func() time.Time
}

// NewPropertyQueries wires the read side. cache may be nil.
func NewPropertyQueries(repo repository.PropertyRepository, users repository.UserRepository, cache MetricsCache, logger *zap.Logger) *PropertyQueries {
	return &PropertyQueries{
		repo:   repo,
		users:  users,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a single listing if caller may see it.
func (q *PropertyQueries) Get(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	p, err := q.repo.GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("property not found")
	}
	if err := CanView(p, caller); err != nil {
		return nil, err
	}
	return p, nil
}

// List pages through the tenant's listings. Without property.read.all the
// status is forced to published; an owner holding property.read.own who
// asks for drafts also gets their own drafts mixed in.
func (q *PropertyQueries) List(ctx context.Context, caller permission.Caller, in ListInput) (*repository.PropertyPage, error) {
	f, status, err := in.toFilter()
	if err != nil {
		return nil, err
	}

	switch {
	case caller.Can(permission.PropertyReadAll):
		f.Status = status
	case status != nil && *status == models.StatusDraft &&
		!caller.IsAnonymous() && caller.Can(permission.PropertyReadOwn):
		f.OwnDraftsOf = caller.UserID
	default:
		published := models.StatusPublished
		f.Status = &published
	}

	page, err := q.repo.List(ctx, caller.TenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return page, nil
}

// ListByOwner pages through ownerID's listings. Callers may list their
// own with property.read.own; anyone else's requires property.read.all.
// Disabled listings are left out unless the caller holds
// property.read.all, matching CanView.
func (q *PropertyQueries) ListByOwner(ctx context.Context, caller permission.Caller, ownerID uuid.UUID, in OwnerListInput) (*repository.PropertyPage, error) {
	readAll := caller.Can(permission.PropertyReadAll)
	if !readAll && !(caller.Is(ownerID) && caller.Can(permission.PropertyReadOwn)) {
		return nil, apperr.Forbidden("insufficient permissions to list these properties")
	}

	f := repository.OwnerFilter{
		Paging:       repository.Paging{Page: in.Page, Limit: in.Limit},
		HideDisabled: !readAll,
	}
	if in.Status != "" {
		s := models.PropertyStatus(in.Status)
		if !s.Valid() {
			return nil, apperr.Validation("invalid status %q", in.Status)
		}
		f.Status = &s
	}

	page, err := q.repo.ListByOwner(ctx, caller.TenantID, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list owner properties: %w", err)
	}
	return page, nil
}

func (q *PropertyQueries) ListFavorites(ctx context.Context, caller permission.Caller, page, limit int) (*repository.PropertyPage, error) {
	if !signedInWith(caller, permission.FavoriteRead) {
		return nil, apperr.Forbidden("insufficient permissions to read favorites")
	}
	props, err := q.repo.ListFavorites(ctx, caller.TenantID, caller.UserID, repository.Paging{Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return props, nil
}

func (q *PropertyQueries) IsFavorited(ctx context.Context, caller permission.Caller, id uuid.UUID) (bool, error) {
	if !signedInWith(caller, permission.FavoriteRead) {
		return false, apperr.Forbidden("insufficient permissions to read favorites")
	}
	ok, err := q.repo.IsFavorited(ctx, caller.TenantID, id, caller.UserID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}

// ValidateForPublishing reports every missing publish requirement of a
// listing the caller can see.
func (q *PropertyQueries) ValidateForPublishing(ctx context.Context, caller permission.Caller, id uuid.UUID) (models.PublishValidation, error) {
	p, err := q.Get(ctx, caller, id)
	if err != nil {
		return models.PublishValidation{}, err
	}
	return p.ValidateForPublishing(), nil
}

// TenantMetrics returns the reporting snapshot for the caller's tenant,
// served from the cache when one is configured. Cache failures are logged
// and fall through to the database.
func (q *PropertyQueries) TenantMetrics(ctx context.Context, caller permission.Caller) (*models.TenantMetrics, error) {
	if !caller.Can(permission.SystemMetricsRead) {
		return nil, apperr.Forbidden("insufficient permissions to read metrics")
	}

	if q.cache != nil {
		m, err := q.cache.Get(ctx, caller.TenantID)
		if err != nil {
			q.logger.Warn("metrics cache read failed", zap.Error(err))
		} else if m != nil {
			return m, nil
		}
	}

	m, err := q.repo.TenantMetrics(ctx, caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant metrics: %w", err)
	}
	users, err := q.users.CountByTenant(ctx, caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant metrics: %w", err)
	}
	m.Users = users

	if q.cache != nil {
		if err := q.cache.Set(ctx, m); err != nil {
			q.logger.Warn("metrics cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

// EngagementMetrics reports listing activity in the caller's tenant over
// the last day, week or month. An empty timeRange means week.
func (q *PropertyQueries) EngagementMetrics(ctx context.Context, caller permission.Caller, timeRange string) (*models.EngagementMetrics, error) {
	if !caller.Can(permission.SystemMetricsRead) {
		return nil, apperr.Forbidden("insufficient permissions to read metrics")
	}
	r, ok := models.ParseTimeRange(timeRange)
	if !ok {
		return nil, apperr.Validation("timeRange must be day, week or month")
	}

	end := q.now()
	start := r.Since(end)
	m, err := q.repo.EngagementMetrics(ctx, caller.TenantID, start)
	if err != nil {
		return nil, fmt.Errorf("engagement metrics: %w", err)
	}
	m.TimeRange = r
	m.Period = models.Period{Start: start, End: end}
	return m, nil
}
