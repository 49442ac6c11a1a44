package repository

import (
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortField is a whitelisted listing sort key, named as the API names it.
type SortField string

const (
	SortCreatedAt      SortField = "createdAt"
	SortUpdatedAt      SortField = "updatedAt"
	SortPublishedAt    SortField = "publishedAt"
	SortPrice          SortField = "price"
	SortViews          SortField = "views"
	SortFavoritesCount SortField = "favoritesCount"
	SortTitle          SortField = "title"
)

var sortColumns = map[SortField]string{
	SortCreatedAt:      "created_at",
	SortUpdatedAt:      "updated_at",
	SortPublishedAt:    "published_at",
	SortPrice:          "price",
	SortViews:          "views",
	SortFavoritesCount: "favorites_count",
	SortTitle:          "title",
}

// Column returns the SQL column for f, or false if f is not sortable.
func (f SortField) Column() (string, bool) {
	col, ok := sortColumns[f]
	return col, ok
}

// PropertyFilter is a fully resolved listing query. Authorization has
// already been applied by the caller: the repository runs it as given.
type PropertyFilter struct {
	Page  int
	Limit int

	// Status restricts results to one status when non-nil.
	Status *models.PropertyStatus

	// OwnDraftsOf, when set, widens a published-only listing with the
	// drafts of this owner: status = published OR (status = draft AND
	// owner_id = OwnDraftsOf). Status is ignored when it is set.
	OwnDraftsOf uuid.UUID

	City     string
	Type     *models.PropertyType
	MinPrice *float64
	MaxPrice *float64

	Near        *models.Coordinates
	MaxDistance float64

	SortBy   SortField
	SortDesc bool
}

// Normalize fills defaults and clamps paging. It returns a copy.
func (f PropertyFilter) Normalize() PropertyFilter {
	pg := Paging{Page: f.Page, Limit: f.Limit}.Normalize()
	f.Page, f.Limit = pg.Page, pg.Limit
	if _, ok := f.SortBy.Column(); !ok {
		f.SortBy = SortCreatedAt
	}
	return f
}

func (f PropertyFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Paging is a bare page request, used by the listings that take no other
// filter than their owner.
type Paging struct {
	Page  int
	Limit int
}

// Normalize applies the same defaults and caps as PropertyFilter.
func (p Paging) Normalize() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OwnerFilter narrows ListByOwner.
type OwnerFilter struct {
	Paging

	// Status restricts results to one status when non-nil.
	Status *models.PropertyStatus

	// HideDisabled drops disabled listings, for callers that cannot see
	// them.
	HideDisabled bool
}

// UserPage is one page of a tenant's users.
type UserPage struct {
	Data  []models.User `json:"data"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// PropertyPage is one page of a listing query.
type PropertyPage struct {
	Data  []models.Property `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
