package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary (an agency or organization).
// Every user and property belongs to exactly one tenant, and every query
// on those tables is scoped by tenant_id.
//
// Slug is the human-friendly identifier anonymous visitors use to pick a
// tenant (X-Tenant-ID: acme-realty). IsActive=false tenants resolve to
// nothing.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a person within a tenant.
//
// Role is one of the built-in role names in internal/permission. The
// permissions it grants are copied into the JWT at login, so a role change
// takes effect on the next token. Inactive users cannot log in; deleted
// users are invisible to every lookup.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// UserUpdate is a partial edit of a user. Nil fields are left alone.
type UserUpdate struct {
	Email       *string
	DisplayName *string
	Role        *string
	IsActive    *bool
}

// Apply copies the set fields of upd onto u.
func (u *User) Apply(upd UserUpdate) {
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
}

// UserSummary is the part of a user attached to property responses.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}
