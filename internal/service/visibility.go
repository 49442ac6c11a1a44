package service

import (
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
)

// CanView decides whether caller may read p. The checks run in a fixed
// order:
//
//  1. published listings are public
//  2. the owner sees their own listing unless it is disabled
//  3. property.read.all sees everything, disabled included
//  4. anyone else gets "property is disabled" for a disabled listing
//  5. property.read.own plus ownership
//  6. otherwise the listing exists but is not shown
//
// Both denials are Forbidden, so a hidden listing and a visible one with
// the same id are reported the same way to every caller that is denied.
func CanView(p *models.Property, caller permission.Caller) error {
	if p.Status == models.StatusPublished {
		return nil
	}
	owner := caller.Is(p.OwnerID)
	if owner && p.Status != models.StatusDisabled {
		return nil
	}
	if caller.Can(permission.PropertyReadAll) {
		return nil
	}
	if p.Status == models.StatusDisabled {
		return apperr.Forbidden("property is disabled")
	}
	if owner && caller.Can(permission.PropertyReadOwn) {
		return nil
	}
	return apperr.Forbidden("insufficient permissions to view this property")
}

// canWrite is the shared update/delete rule: the .all permission, or the
// .own permission on a listing the caller owns.
func canWrite(p *models.Property, caller permission.Caller, all, own permission.Permission) bool {
	if caller.Can(all) {
		return true
	}
	return caller.Can(own) && caller.Is(p.OwnerID)
}

// signedInWith reports whether caller is a real user holding every one of
// perms.
func signedInWith(caller permission.Caller, perms ...permission.Permission) bool {
	return !caller.IsAnonymous() && caller.Permissions.HasAll(perms...)
}

// signedInWithAny is signedInWith for callers that need only one of perms,
// such as an .own and .all pair on the caller's own record.
func signedInWithAny(caller permission.Caller, perms ...permission.Permission) bool {
	return !caller.IsAnonymous() && caller.Permissions.HasAny(perms...)
}
