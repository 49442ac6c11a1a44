package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/models"
)

// Every method takes ctx first and, where data is tenant-owned, a
// tenantID second. tenantID is not optional: there is no "global" variant
// of a property query, so forgetting the tenant is a compile error rather
// than a silent cross-tenant read.
//
// Lookups return nil, nil when nothing matches. Mutations that target a
// specific record return an apperr NotFound error instead, and an apperr
// Validation error when the record exists but is in the wrong state.

// PropertyRepository persists listings. It applies tenant scoping and
// soft-delete exclusion; it knows nothing about who is calling.
type PropertyRepository interface {
	// Create stores p as a new draft and returns it with ID and timestamps set.
	Create(ctx context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error)

	// Update replaces the content fields of p (title, description, location,
	// price, images, type, metadata). Status, owner, tenant and counters are
	// never written. Only editable (draft/archived) listings are updated.
	Update(ctx context.Context, tenantID uuid.UUID, p *models.Property) (*models.Property, error)

	SoftDelete(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error

	// Publish re-reads the listing under a lock and re-checks the publish
	// precondition before applying it, so two concurrent publishers get one
	// success and one validation error.
	Publish(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error)

	Archive(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error)
	Disable(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, disabledBy uuid.UUID) (*models.Property, error)
	Enable(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error)

	GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*models.Property, error)

	// ListByOwner returns one page of the owner's listings, newest first.
	ListByOwner(ctx context.Context, tenantID uuid.UUID, ownerID uuid.UUID, f OwnerFilter) (*PropertyPage, error)

	// List returns one page of listings matching f.
	List(ctx context.Context, tenantID uuid.UUID, f PropertyFilter) (*PropertyPage, error)

	// ListFavorites returns one page of the published listings favorited
	// by userID, most recently updated first.
	ListFavorites(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, p Paging) (*PropertyPage, error)

	// AddFavorite and RemoveFavorite are idempotent and keep FavoritesCount
	// equal to len(FavoritedBy). Both require a published listing.
	AddFavorite(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error)
	RemoveFavorite(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (*models.Property, error)

	IsFavorited(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error)

	// IncrementViews counts userID once per published listing and reports
	// whether the counter moved. uuid.Nil never counts.
	IncrementViews(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, userID uuid.UUID) (bool, error)

	// TenantMetrics aggregates listing counts for reporting.
	TenantMetrics(ctx context.Context, tenantID uuid.UUID) (*models.TenantMetrics, error)

	// EngagementMetrics counts listings created and published at or after
	// since, and sums views and favorites over the published ones. Only
	// the counters are filled in.
	EngagementMetrics(ctx context.Context, tenantID uuid.UUID, since time.Time) (*models.EngagementMetrics, error)
}

// TenantRepository resolves tenants. Lookups only return active tenants.
type TenantRepository interface {
	Create(ctx context.Context, name, slug string) (*models.Tenant, error)
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// UserRepository handles user data. Deleted users are invisible to every
// method; an email taken by a live user is an apperr Conflict.
type UserRepository interface {
	// Create stores an active user.
	Create(ctx context.Context, tenantID uuid.UUID, email, displayName, passwordHash, role string) (*models.User, error)

	// GetByID returns a user by their ID, scoped to the tenant.
	GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error)

	// GetByIDs returns the users found among ids, keyed by id.
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.User, error)

	// GetByEmail looks a user up globally; emails are unique across tenants.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// List returns one page of the tenant's users, newest first.
	List(ctx context.Context, tenantID uuid.UUID, p Paging) (*UserPage, error)

	// Update writes email, display name, role and the active flag.
	Update(ctx context.Context, tenantID uuid.UUID, u *models.User) (*models.User, error)

	// ToggleActive flips the active flag in one step and returns the result.
	ToggleActive(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error)

	SetPassword(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID, passwordHash string) error
	SoftDelete(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) error
}
