package postgres

import "github.com/lalith-99/estatehub/internal/repository"

var (
	_ repository.PropertyRepository = (*PropertyStore)(nil)
	_ repository.TenantRepository   = (*TenantStore)(nil)
	_ repository.UserRepository     = (*UserStore)(nil)
)
