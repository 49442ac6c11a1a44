package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/repository"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
	now   func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]models.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// live returns the user if it is in the tenant and not deleted. Callers
// must hold s.mu.
func (s *UserStore) live(tenantID, userID uuid.UUID) (models.User, bool) {
	u, ok := s.users[userID]
	if !ok || u.TenantID != tenantID || u.DeletedAt != nil {
		return models.User{}, false
	}
	return u, true
}

// emailTaken reports whether a live user other than self uses email.
// Callers must hold s.mu.
func (s *UserStore) emailTaken(email string, self uuid.UUID) bool {
	for _, u := range s.users {
		if u.ID != self && u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *UserStore) Create(_ context.Context, tenantID uuid.UUID, email, displayName, passwordHash, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(email, uuid.Nil) {
		return nil, apperr.Conflict("email already registered")
	}
	now := s.now()
	u := models.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *UserStore) GetByID(_ context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.live(tenantID, userID)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) GetByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.live(tenantID, id); ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) CountByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, u := range s.users {
		if u.TenantID == tenantID && u.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *UserStore) List(_ context.Context, tenantID uuid.UUID, p repository.Paging) (*repository.UserPage, error) {
	p = p.Normalize()

	s.mu.RLock()
	all := make([]models.User, 0)
	for _, u := range s.users {
		if u.TenantID == tenantID && u.DeletedAt == nil {
			all = append(all, u)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))

	return &repository.UserPage{
		Data:  all[start:end],
		Total: int64(len(all)),
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

func (s *UserStore) Update(_ context.Context, tenantID uuid.UUID, u *models.User) (*models.User, error) {
	return s.mutate(tenantID, u.ID, func(stored *models.User) error {
		if s.emailTaken(u.Email, u.ID) {
			return apperr.Conflict("email already registered")
		}
		stored.Email = u.Email
		stored.DisplayName = u.DisplayName
		stored.Role = u.Role
		stored.IsActive = u.IsActive
		return nil
	})
}

func (s *UserStore) ToggleActive(_ context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error) {
	return s.mutate(tenantID, userID, func(stored *models.User) error {
		stored.IsActive = !stored.IsActive
		return nil
	})
}

func (s *UserStore) SetPassword(_ context.Context, tenantID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	_, err := s.mutate(tenantID, userID, func(stored *models.User) error {
		stored.PasswordHash = passwordHash
		return nil
	})
	return err
}

func (s *UserStore) SoftDelete(_ context.Context, tenantID uuid.UUID, userID uuid.UUID) error {
	_, err := s.mutate(tenantID, userID, func(stored *models.User) error {
		now := s.now()
		stored.DeletedAt = &now
		return nil
	})
	return err
}

// mutate applies fn to a live user under the write lock and stamps
// UpdatedAt when fn succeeds.
func (s *UserStore) mutate(tenantID, userID uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.live(tenantID, userID)
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
	return &u, nil
}
