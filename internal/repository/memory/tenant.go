package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/models"
)

type TenantStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]models.Tenant
}

func NewTenantStore() *TenantStore {
	return &TenantStore{tenants: make(map[uuid.UUID]models.Tenant)}
}

func (s *TenantStore) Create(_ context.Context, name, slug string) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			return nil, fmt.Errorf("insert tenant: slug %q already exists", slug)
		}
	}
	t := models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.tenants[t.ID] = t
	return &t, nil
}

func (s *TenantStore) GetByID(_ context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok || !t.IsActive {
		return nil, nil
	}
	return &t, nil
}

func (s *TenantStore) GetBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug && t.IsActive {
			return &t, nil
		}
	}
	return nil, nil
}

// SetActive flips a tenant's active flag. Only the memory driver exposes
// it; operators deactivate Postgres tenants with SQL.
func (s *TenantStore) SetActive(tenantID uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tenants[tenantID]; ok {
		t.IsActive = active
		s.tenants[tenantID] = t
	}
}
