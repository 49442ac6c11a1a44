// Package memory holds in-process implementations of the repository
// interfaces. They back STORAGE_DRIVER=memory and the service and API
// tests. Every method holds one mutex for its whole body, which gives the
// same per-record atomicity the Postgres stores get from conditional
// UPDATE statements and row locks.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/geo"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

type PropertyStore struct {
	mu         sync.Mutex
	properties map[uuid.UUID]*models.Property
	now        func() time.Time
}

func NewPropertyStore() *PropertyStore {
	return &PropertyStore{
		properties: make(map[uuid.UUID]*models.Property),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// lookup returns the live record if it is in the tenant and not deleted.
// Callers must hold s.mu.
func (s *PropertyStore) lookup(tenantID, id uuid.UUID) *models.Property {
	p, ok := s.properties[id]
	if !ok || p.TenantID != tenantID || p.IsDeleted() {
		return nil
	}
	return p
}

func (s *PropertyStore) mustLookup(tenantID, id uuid.UUID) (*models.Property, error) {
	p := s.lookup(tenantID, id)
	if p == nil {
		return nil, apperr.NotFound("property not found")
	}
	return p, nil
}

func (s *PropertyStore) Create(_ context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := p.Clone()
	stored.ID = uuid.New()
	stored.TenantID = tenantID
	stored.Status = models.StatusDraft
	stored.Views = 0
	stored.ViewedBy = nil
	stored.FavoritesCount = 0
	stored.FavoritedBy = nil
	stored.PublishedAt = nil
	stored.DisabledAt = nil
	stored.DisabledBy = nil
	stored.DeletedAt = nil
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Images == nil {
		stored.Images = []string{}
	}
	if stored.Metadata == nil {
		stored.Metadata = map[string]any{}
	}

	s.properties[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *PropertyStore) Update(_ context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.mustLookup(tenantID, p.ID)
	if err != nil {
		return nil, err
	}
	images := slices.Clone(p.Images)
	if images == nil {
		images = []string{}
	}
	loc := p.Location
	if loc.Coordinates != nil {
		c := *loc.Coordinates
		loc.Coordinates = &c
	}
	metadata := p.Clone().Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	update := models.PropertyUpdate{
		Title:       &p.Title,
		Description: &p.Description,
		Location:    &loc,
		Price:       &p.Price,
		Images:      images,
		SetImages:   true,
		Type:        &p.Type,
		Metadata:    metadata,
		SetMetadata: true,
	}
	if err := current.ApplyUpdate(update, s.now()); err != nil {
		return nil, err
	}
	return current.Clone(), nil
}

func (s *PropertyStore) SoftDelete(_ context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.mustLookup(tenantID, id)
	if err != nil {
		return err
	}
	p.SoftDelete(s.now())
	return nil
}

func (s *PropertyStore) Publish(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		return p.Publish(s.now())
	})
}

func (s *PropertyStore) Archive(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		return p.Archive(s.now())
	})
}

func (s *PropertyStore) Disable(_ context.Context, tenantID uuid.UUID, id uuid.UUID, disabledBy uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		return p.Disable(disabledBy, s.now())
	})
}

func (s *PropertyStore) Enable(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		return p.Enable(s.now())
	})
}

// mutate applies fn to the live record under the lock. fn must leave the
// record untouched when it returns an error.
func (s *PropertyStore) mutate(tenantID, id uuid.UUID, fn func(*models.Property) error) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.mustLookup(tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *PropertyStore) GetByID(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(tenantID, id)
	if p == nil {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *PropertyStore) ListByOwner(_ context.Context, tenantID uuid.UUID, ownerID uuid.UUID, f repository.OwnerFilter) (*repository.PropertyPage, error) {
	s.mu.Lock()
	out := s.collect(tenantID, func(p *models.Property) bool {
		if p.OwnerID != ownerID || (f.Status != nil && p.Status != *f.Status) {
			return false
		}
		return !f.HideDisabled || p.Status != models.StatusDisabled
	})
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Property) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, f.Paging), nil
}

func (s *PropertyStore) List(_ context.Context, tenantID uuid.UUID, f repository.PropertyFilter) (*repository.PropertyPage, error) {
	f = f.Normalize()

	s.mu.Lock()
	matched := s.collect(tenantID, func(p *models.Property) bool { return matches(p, f) })
	s.mu.Unlock()

	slices.SortStableFunc(matched, func(a, b models.Property) int {
		c := compareBy(f.SortBy, &a, &b)
		if f.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return page(matched, repository.Paging{Page: f.Page, Limit: f.Limit}), nil
}

func matches(p *models.Property, f repository.PropertyFilter) bool {
	switch {
	case f.OwnDraftsOf != uuid.Nil:
		if p.Status != models.StatusPublished && !(p.Status == models.StatusDraft && p.OwnerID == f.OwnDraftsOf) {
			return false
		}
	case f.Status != nil:
		if p.Status != *f.Status {
			return false
		}
	}
	if f.City != "" && !strings.Contains(strings.ToLower(p.Location.City), strings.ToLower(f.City)) {
		return false
	}
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Near != nil {
		radius := f.MaxDistance
		if radius <= 0 {
			radius = geo.DefaultMaxDistance
		}
		if p.Location.Coordinates == nil || geo.Distance(*f.Near, *p.Location.Coordinates) > radius {
			return false
		}
	}
	return true
}

func compareBy(field repository.SortField, a, b *models.Property) int {
	switch field {
	case repository.SortPrice:
		return cmp.Compare(a.Price, b.Price)
	case repository.SortViews:
		return cmp.Compare(a.Views, b.Views)
	case repository.SortFavoritesCount:
		return cmp.Compare(a.FavoritesCount, b.FavoritesCount)
	case repository.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case repository.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case repository.SortPublishedAt:
		return comparePublished(a.PublishedAt, b.PublishedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// comparePublished orders unpublished listings as later than any date.
func comparePublished(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func (s *PropertyStore) ListFavorites(_ context.Context, tenantID uuid.UUID, userID uuid.UUID, pg repository.Paging) (*repository.PropertyPage, error) {
	s.mu.Lock()
	out := s.collect(tenantID, func(p *models.Property) bool {
		return p.Status == models.StatusPublished && p.IsFavoritedBy(userID)
	})
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Property) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return page(out, pg), nil
}

// page cuts one page out of an already sorted result.
func page(all []models.Property, p repository.Paging) *repository.PropertyPage {
	p = p.Normalize()
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return &repository.PropertyPage{
		Data:  all[start:end],
		Total: int64(len(all)),
		Page:  p.Page,
		Limit: p.Limit,
	}
}

func (s *PropertyStore) AddFavorite(_ context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		if err := p.CheckFavoritable(); err != nil {
			return err
		}
		if p.AddFavorite(userID) {
			p.UpdatedAt = s.now()
		}
		return nil
	})
}

func (s *PropertyStore) RemoveFavorite(_ context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error) {
	return s.mutate(tenantID, id, func(p *models.Property) error {
		if err := p.CheckFavoritable(); err != nil {
			return err
		}
		if p.RemoveFavorite(userID) {
			p.UpdatedAt = s.now()
		}
		return nil
	})
}

func (s *PropertyStore) IsFavorited(_ context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(tenantID, id)
	return p != nil && p.IsFavoritedBy(userID), nil
}

func (s *PropertyStore) IncrementViews(_ context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(tenantID, id)
	if p == nil {
		return false, nil
	}
	return p.RecordView(userID), nil
}

func (s *PropertyStore) TenantMetrics(_ context.Context, tenantID uuid.UUID) (*models.TenantMetrics, error) {
	s.mu.Lock()
	all := s.collect(tenantID, func(*models.Property) bool { return true })
	s.mu.Unlock()

	m := &models.TenantMetrics{
		TenantID:    tenantID,
		ByStatus:    make(map[models.PropertyStatus]int64),
		GeneratedAt: s.now(),
	}
	for i := range all {
		p := &all[i]
		m.Total++
		m.ByStatus[p.Status]++
		m.TotalViews += p.Views
		m.TotalFavorites += p.FavoritesCount
	}

	m.Recent = topSummaries(all, func(a, b models.Property) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	m.TopViewed = topSummaries(all, func(a, b models.Property) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return m, nil
}

func (s *PropertyStore) EngagementMetrics(_ context.Context, tenantID uuid.UUID, since time.Time) (*models.EngagementMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &models.EngagementMetrics{TenantID: tenantID}
	for _, p := range s.properties {
		if p.TenantID != tenantID || p.IsDeleted() {
			continue
		}
		if !p.CreatedAt.Before(since) {
			m.PropertiesCreated++
		}
		if p.PublishedAt != nil && !p.PublishedAt.Before(since) {
			m.PropertiesPublished++
		}
		if p.Status == models.StatusPublished {
			m.TotalViews += p.Views
			m.TotalFavorites += p.FavoritesCount
		}
	}
	return m, nil
}

func topSummaries(all []models.Property, order func(a, b models.Property) int) []models.PropertySummary {
	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, order)
	out := make([]models.PropertySummary, 0, models.MetricsListSize)
	for i := 0; i < len(sorted) && i < models.MetricsListSize; i++ {
		out = append(out, sorted[i].Summary())
	}
	return out
}

// collect copies every live tenant record accepted by keep. Callers must
// hold s.mu.
func (s *PropertyStore) collect(tenantID uuid.UUID, keep func(*models.Property) bool) []models.Property {
	out := make([]models.Property, 0)
	for _, p := range s.properties {
		if p.TenantID != tenantID || p.IsDeleted() || !keep(p) {
			continue
		}
		out = append(out, *p.Clone())
	}
	return out
}
