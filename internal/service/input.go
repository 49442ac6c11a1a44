package service

import (
	"strconv"
	"strings"

	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/geo"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

// CreatePropertyInput is the content of a new listing. New listings are
// always drafts.
type CreatePropertyInput struct {
	Title       string
	Description string
	Location    models.Location
	Price       float64
	Images      []string
	Type        models.PropertyType
	Metadata    map[string]any
}

// OwnerListInput pages through one owner's listings. Status is optional.
type OwnerListInput struct {
	Page   int
	Limit  int
	Status string
}

// ListInput is a listing request as the client sent it. Near and
// MaxDistance stay raw so malformed values can be dropped instead of
// rejected.
type ListInput struct {
	Page        int
	Limit       int
	Status      string
	City        string
	Type        string
	MinPrice    *float64
	MaxPrice    *float64
	Near        string
	MaxDistance string
	SortBy      string
	SortOrder   string
}

// toFilter validates the strict parts of in and resolves the lenient ones.
// The status restriction is not applied here; see PropertyQueries.List.
func (in ListInput) toFilter() (repository.PropertyFilter, *models.PropertyStatus, error) {
	f := repository.PropertyFilter{
		Page:     in.Page,
		Limit:    in.Limit,
		City:     strings.TrimSpace(in.City),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		SortDesc: true,
	}

	var status *models.PropertyStatus
	if in.Status != "" {
		s := models.PropertyStatus(in.Status)
		if !s.Valid() {
			return f, nil, apperr.Validation("invalid status %q", in.Status)
		}
		status = &s
	}

	if in.Type != "" {
		t := models.PropertyType(in.Type)
		if !t.Valid() {
			return f, nil, apperr.Validation("invalid property type %q", in.Type)
		}
		f.Type = &t
	}

	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return f, nil, apperr.Validation("minPrice cannot be greater than maxPrice")
	}

	if in.SortBy != "" {
		sf := repository.SortField(in.SortBy)
		if _, ok := sf.Column(); !ok {
			return f, nil, apperr.Validation("invalid sort field %q", in.SortBy)
		}
		f.SortBy = sf
	}
	switch strings.ToLower(in.SortOrder) {
	case "", "desc":
	case "asc":
		f.SortDesc = false
	default:
		return f, nil, apperr.Validation("sortOrder must be asc or desc")
	}

	if in.Near != "" {
		if c, ok := geo.ParseNear(in.Near); ok {
			f.Near = &c
			f.MaxDistance = geo.DefaultMaxDistance
			if d, err := strconv.ParseFloat(in.MaxDistance, 64); err == nil && d > 0 {
				f.MaxDistance = d
			}
		}
	}

	return f.Normalize(), status, nil
}

func validateContent(title string, price float64, typ models.PropertyType, loc models.Location, images []string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	if price < 0 {
		return apperr.Validation("price must not be negative")
	}
	if !typ.Valid() {
		return apperr.Validation("invalid property type %q", typ)
	}
	if loc.Coordinates != nil && !loc.Coordinates.Valid() {
		return apperr.Validation("coordinates are out of range")
	}
	if len(images) > models.MaxImages {
		return apperr.Validation("a property can have at most %d images", models.MaxImages)
	}
	return nil
}
