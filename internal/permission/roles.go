package permission

// Role names stored on users.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
	RoleUser  = "user"
)

var roleGroups = map[string][]Permission{
	RoleAdmin: {
		PropertyReadAll,
		PropertyUpdateAll,
		PropertyDeleteAll,
		UserReadAll,
		UserUpdateAll,
		SystemMetricsRead,
	},
	RoleOwner: {
		PropertyCreate,
		PropertyReadOwn,
		PropertyUpdateOwn,
		PropertyDeleteOwn,
		PropertyPublish,
		PropertyArchive,
		UserReadOwn,
		UserUpdateOwn,
		FavoriteCreate,
		FavoriteRead,
		FavoriteDelete,
	},
	RoleUser: {
		PropertyReadOwn,
		UserReadOwn,
		UserUpdateOwn,
		FavoriteCreate,
		FavoriteRead,
		FavoriteDelete,
	},
}

// ValidRole reports whether role is one of the built-in roles.
func ValidRole(role string) bool {
	_, ok := roleGroups[role]
	return ok
}

// ForRole returns the permissions granted by role. Unknown roles get an
// empty set.
func ForRole(role string) Set {
	return NewSet(roleGroups[role]...)
}
