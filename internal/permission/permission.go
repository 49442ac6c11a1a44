package permission

import (
	"sort"

	"github.com/google/uuid"
)

// Permission is a single capability granted through a role.
//
// The set is closed: strings coming from a token are parsed into known
// constants and anything unknown is dropped, so a typo in a check is a
// compile error instead of a silent deny.
type Permission string

const (
	PropertyCreate    Permission = "property.create"
	PropertyReadOwn   Permission = "property.read.own"
	PropertyReadAll   Permission = "property.read.all"
	PropertyUpdateOwn Permission = "property.update.own"
	PropertyUpdateAll Permission = "property.update.all"
	PropertyDeleteOwn Permission = "property.delete.own"
	PropertyDeleteAll Permission = "property.delete.all"
	PropertyPublish   Permission = "property.publish"
	PropertyArchive   Permission = "property.archive"

	UserReadOwn   Permission = "user.read.own"
	UserReadAll   Permission = "user.read.all"
	UserUpdateOwn Permission = "user.update.own"
	UserUpdateAll Permission = "user.update.all"

	SystemMetricsRead Permission = "system.metrics.read"

	FavoriteCreate Permission = "favorite.create"
	FavoriteRead   Permission = "favorite.read"
	FavoriteDelete Permission = "favorite.delete"
)

var known = map[Permission]struct{}{
	PropertyCreate: {}, PropertyReadOwn: {}, PropertyReadAll: {},
	PropertyUpdateOwn: {}, PropertyUpdateAll: {},
	PropertyDeleteOwn: {}, PropertyDeleteAll: {},
	PropertyPublish: {}, PropertyArchive: {},
	UserReadOwn: {}, UserReadAll: {}, UserUpdateOwn: {}, UserUpdateAll: {},
	SystemMetricsRead: {},
	FavoriteCreate: {}, FavoriteRead: {}, FavoriteDelete: {},
}

// Parse returns the Permission for s, or false if s is not a known permission.
func Parse(s string) (Permission, bool) {
	p := Permission(s)
	_, ok := known[p]
	return p, ok
}

// Set is an unordered collection of permissions. The zero value is an
// empty set and safe to query.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// ParseSet builds a Set from raw strings, skipping unknown entries.
func ParseSet(raw []string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		if p, ok := Parse(r); ok {
			s[p] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether at least one of perms is in the set.
func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is in the set.
// HasAll() with no arguments is true.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Strings returns the set as sorted strings, for tokens and responses.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Caller is who is making a request: the verified user, the tenant the
// request runs in, and what the user may do. UserID is uuid.Nil for
// anonymous callers.
type Caller struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Permissions Set
}

// Anonymous builds a caller with no identity and no permissions.
func Anonymous(tenantID uuid.UUID) Caller {
	return Caller{TenantID: tenantID, Permissions: Set{}}
}

func (c Caller) IsAnonymous() bool {
	return c.UserID == uuid.Nil
}

// Is reports whether the caller is the given user. Anonymous callers are
// never anyone.
func (c Caller) Is(userID uuid.UUID) bool {
	return !c.IsAnonymous() && c.UserID == userID
}

func (c Caller) Can(p Permission) bool {
	return c.Permissions.Has(p)
}
