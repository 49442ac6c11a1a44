package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
)

type PropertyStatus string

const (
	StatusDraft     PropertyStatus = "draft"
	StatusPublished PropertyStatus = "published"
	StatusArchived  PropertyStatus = "archived"
	StatusDisabled  PropertyStatus = "disabled"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived, StatusDisabled:
		return true
	}
	return false
}

type PropertyType string

const (
	TypeApartment  PropertyType = "apartment"
	TypeHouse      PropertyType = "house"
	TypeVilla      PropertyType = "villa"
	TypeCommercial PropertyType = "commercial"
	TypeLand       PropertyType = "land"
)

func (t PropertyType) Valid() bool {
	switch t {
	case TypeApartment, TypeHouse, TypeVilla, TypeCommercial, TypeLand:
		return true
	}
	return false
}

// MaxImages is the most images a single listing may carry.
const MaxImages = 10

// Coordinates is a WGS84 point. Longitude comes first, matching the
// "lng,lat" order of the near= query parameter.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (c Coordinates) Valid() bool {
	return c.Longitude >= -180 && c.Longitude <= 180 &&
		c.Latitude >= -90 && c.Latitude <= 90
}

type Location struct {
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Property is a listing owned by one user inside one tenant.
//
// The entity always holds bare ids for owner and tenant. Expanded owner
// details are attached by the response projection in internal/service,
// never stored here.
//
// FavoritedBy and FavoritesCount move together: every mutation of one
// goes through AddFavorite/RemoveFavorite (or the equivalent single SQL
// statement), so FavoritesCount == len(FavoritedBy) holds after each call.
// ViewedBy makes Views a unique-viewer counter.
type Property struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    Location       `json:"location"`
	Price       float64        `json:"price"`
	Images      []string       `json:"images"`
	Type        PropertyType   `json:"type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Status      PropertyStatus `json:"status"`

	Views          int64       `json:"views"`
	ViewedBy       []uuid.UUID `json:"-"`
	FavoritesCount int64       `json:"favorites_count"`
	FavoritedBy    []uuid.UUID `json:"-"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	DisabledAt  *time.Time `json:"disabled_at,omitempty"`
	DisabledBy  *uuid.UUID `json:"disabled_by,omitempty"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Property) IsOwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.OwnerID == userID
}

// CanBeEdited is true only for draft and archived listings. Published
// listings are edit-locked and disabled ones belong to the administrator.
func (p *Property) CanBeEdited() bool {
	return p.Status == StatusDraft || p.Status == StatusArchived
}

// editLockError explains why CanBeEdited is false.
func (p *Property) editLockError() error {
	if p.Status == StatusDisabled {
		return apperr.Validation("disabled properties cannot be edited")
	}
	return apperr.Validation("published properties cannot be edited")
}

// EnsureEditable returns a validation error when the listing is locked.
func (p *Property) EnsureEditable() error {
	if p.CanBeEdited() {
		return nil
	}
	return p.editLockError()
}

// PublishValidation is the outcome of ValidateForPublishing.
type PublishValidation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateForPublishing checks the content requirements for publishing
// without touching state, so clients can show every problem at once.
func (p *Property) ValidateForPublishing() PublishValidation {
	errs := make([]string, 0)
	if len(p.Images) == 0 {
		errs = append(errs, "property must have at least one image to publish")
	}
	if p.Location.Address == "" {
		errs = append(errs, "location address is required")
	}
	if p.Location.City == "" {
		errs = append(errs, "location city is required")
	}
	if p.Location.Country == "" {
		errs = append(errs, "location country is required")
	}
	return PublishValidation{IsValid: len(errs) == 0, Errors: errs}
}

// CheckPublishable is the publish guard: the listing must be a draft with
// at least one image.
func (p *Property) CheckPublishable() error {
	if p.Status != StatusDraft {
		return apperr.Validation("only draft properties can be published")
	}
	if len(p.Images) == 0 {
		return apperr.Validation("property must have at least one image to publish")
	}
	return nil
}

func (p *Property) Publish(now time.Time) error {
	if err := p.CheckPublishable(); err != nil {
		return err
	}
	p.Status = StatusPublished
	p.PublishedAt = &now
	p.UpdatedAt = now
	return nil
}

// CheckArchivable allows draft and published listings to be archived.
// There is no way back out of archived.
func (p *Property) CheckArchivable() error {
	switch p.Status {
	case StatusDraft, StatusPublished:
		return nil
	case StatusArchived:
		return apperr.Validation("property is already archived")
	default:
		return apperr.Validation("disabled properties cannot be archived")
	}
}

func (p *Property) Archive(now time.Time) error {
	if err := p.CheckArchivable(); err != nil {
		return err
	}
	p.Status = StatusArchived
	p.UpdatedAt = now
	return nil
}

func (p *Property) CheckDisableable() error {
	if p.Status == StatusDisabled {
		return apperr.Validation("property is already disabled")
	}
	return nil
}

func (p *Property) Disable(by uuid.UUID, now time.Time) error {
	if err := p.CheckDisableable(); err != nil {
		return err
	}
	p.Status = StatusDisabled
	p.DisabledAt = &now
	p.DisabledBy = &by
	p.UpdatedAt = now
	return nil
}

func (p *Property) CheckEnableable() error {
	if p.Status != StatusDisabled {
		return apperr.Validation("only disabled properties can be enabled")
	}
	return nil
}

// Enable always lands in draft; the owner has to publish again.
func (p *Property) Enable(now time.Time) error {
	if err := p.CheckEnableable(); err != nil {
		return err
	}
	p.Status = StatusDraft
	p.DisabledAt = nil
	p.DisabledBy = nil
	p.UpdatedAt = now
	return nil
}

func (p *Property) SoftDelete(now time.Time) {
	p.DeletedAt = &now
	p.UpdatedAt = now
}

func (p *Property) IsDeleted() bool {
	return p.DeletedAt != nil
}

// CheckFavoritable requires the listing to be published.
func (p *Property) CheckFavoritable() error {
	if p.Status != StatusPublished {
		return apperr.Validation("only published properties can be favorited")
	}
	return nil
}

func (p *Property) IsFavoritedBy(userID uuid.UUID) bool {
	return slices.Contains(p.FavoritedBy, userID)
}

// AddFavorite adds userID to FavoritedBy. It reports whether anything
// changed; adding twice is a no-op.
func (p *Property) AddFavorite(userID uuid.UUID) bool {
	if p.IsFavoritedBy(userID) {
		return false
	}
	p.FavoritedBy = append(p.FavoritedBy, userID)
	p.FavoritesCount = int64(len(p.FavoritedBy))
	return true
}

// RemoveFavorite is the inverse of AddFavorite. Removing a user who never
// favorited the listing is a no-op.
func (p *Property) RemoveFavorite(userID uuid.UUID) bool {
	i := slices.Index(p.FavoritedBy, userID)
	if i < 0 {
		return false
	}
	p.FavoritedBy = slices.Delete(p.FavoritedBy, i, i+1)
	p.FavoritesCount = max(int64(len(p.FavoritedBy)), 0)
	return true
}

// RecordView counts userID once. Anonymous viewers and non-published
// listings never count.
func (p *Property) RecordView(userID uuid.UUID) bool {
	if userID == uuid.Nil || p.Status != StatusPublished {
		return false
	}
	if slices.Contains(p.ViewedBy, userID) {
		return false
	}
	p.ViewedBy = append(p.ViewedBy, userID)
	p.Views++
	return true
}

// PropertyUpdate is a partial content edit. Nil fields are left alone.
type PropertyUpdate struct {
	Title       *string
	Description *string
	Location    *Location
	Price       *float64
	Images      []string
	SetImages   bool
	Type        *PropertyType
	Metadata    map[string]any
	SetMetadata bool
}

// ApplyUpdate copies the set fields of u onto p, refusing locked listings.
func (p *Property) ApplyUpdate(u PropertyUpdate, now time.Time) error {
	if err := p.EnsureEditable(); err != nil {
		return err
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.SetImages {
		p.Images = slices.Clone(u.Images)
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.SetMetadata {
		p.Metadata = u.Metadata
	}
	p.UpdatedAt = now
	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (p *Property) Clone() *Property {
	c := *p
	c.Images = slices.Clone(p.Images)
	c.ViewedBy = slices.Clone(p.ViewedBy)
	c.FavoritedBy = slices.Clone(p.FavoritedBy)
	if p.Location.Coordinates != nil {
		coords := *p.Location.Coordinates
		c.Location.Coordinates = &coords
	}
	if p.Metadata != nil {
		c.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	if p.DisabledAt != nil {
		t := *p.DisabledAt
		c.DisabledAt = &t
	}
	if p.DisabledBy != nil {
		id := *p.DisabledBy
		c.DisabledBy = &id
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
