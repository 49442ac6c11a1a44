package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"github.com/lalith-99/estatehub/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput is an admin adding someone to their own tenant. Role
// defaults to user.
type CreateUserInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// ProfileUpdate is what users may change about themselves. Role and the
// active flag are only changed through Update.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
}

// UserService administers the users of the caller's tenant. Nothing here
// reaches across tenants, admins included.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger

	// cost is bcrypt.DefaultCost outside tests.
	cost int
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger, cost: bcrypt.DefaultCost}
}

// Profile returns the caller's own record.
func (s *UserService) Profile(ctx context.Context, caller permission.Caller) (*models.User, error) {
	if !signedInWithAny(caller, permission.UserReadOwn, permission.UserReadAll) {
		return nil, apperr.Forbidden("insufficient permissions to read this profile")
	}
	return s.load(ctx, caller, caller.UserID)
}

// UpdateProfile edits the caller's own email and display name.
func (s *UserService) UpdateProfile(ctx context.Context, caller permission.Caller, in ProfileUpdate) (*models.User, error) {
	if !signedInWithAny(caller, permission.UserUpdateOwn, permission.UserUpdateAll) {
		return nil, apperr.Forbidden("insufficient permissions to update this profile")
	}
	return s.update(ctx, caller, caller.UserID, models.UserUpdate{Email: in.Email, DisplayName: in.DisplayName})
}

// List pages through the tenant's users.
func (s *UserService) List(ctx context.Context, caller permission.Caller, page, limit int) (*repository.UserPage, error) {
	if !caller.Can(permission.UserReadAll) {
		return nil, apperr.Forbidden("insufficient permissions to list users")
	}
	users, err := s.users.List(ctx, caller.TenantID, repository.Paging{Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns one user. Callers may always read themselves when they hold
// user.read.own.
func (s *UserService) Get(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.User, error) {
	self := caller.Is(id) && caller.Can(permission.UserReadOwn)
	if !self && !caller.Can(permission.UserReadAll) {
		return nil, apperr.Forbidden("insufficient permissions to read this user")
	}
	return s.load(ctx, caller, id)
}

func (s *UserService) Create(ctx context.Context, caller permission.Caller, in CreateUserInput) (*models.User, error) {
	if !caller.Can(permission.UserUpdateAll) {
		return nil, apperr.Forbidden("insufficient permissions to create users")
	}
	role := in.Role
	if role == "" {
		role = permission.RoleUser
	}
	if !permission.ValidRole(role) {
		return nil, apperr.Validation("unknown role %q", role)
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		return nil, apperr.Validation("display name is required")
	}
	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, caller.TenantID, email, displayName, hash, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", role),
		zap.String("created_by", caller.UserID.String()),
	)
	return user, nil
}

// Update is the admin edit. Admins cannot change their own role or
// deactivate themselves, so a tenant never loses its last admin by
// accident.
func (s *UserService) Update(ctx context.Context, caller permission.Caller, id uuid.UUID, u models.UserUpdate) (*models.User, error) {
	if !caller.Can(permission.UserUpdateAll) {
		return nil, apperr.Forbidden("insufficient permissions to update users")
	}
	if u.Role != nil && !permission.ValidRole(*u.Role) {
		return nil, apperr.Validation("unknown role %q", *u.Role)
	}
	if caller.Is(id) && (u.Role != nil || (u.IsActive != nil && !*u.IsActive)) {
		return nil, apperr.Validation("you cannot change your own role or deactivate yourself")
	}
	updated, err := s.update(ctx, caller, id, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user updated",
		zap.String("user_id", id.String()),
		zap.String("updated_by", caller.UserID.String()),
	)
	return updated, nil
}

// Delete soft-deletes a user. Their listings stay and keep their owner id.
func (s *UserService) Delete(ctx context.Context, caller permission.Caller, id uuid.UUID) error {
	if err := s.checkAdminAction(caller, id, "delete"); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, caller.TenantID, id); err != nil {
		return err
	}
	s.logger.Info("user deleted",
		zap.String("user_id", id.String()),
		zap.String("deleted_by", caller.UserID.String()),
	)
	return nil
}

// ToggleActive flips whether a user may log in. Tokens already issued
// stay valid until they expire.
func (s *UserService) ToggleActive(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.User, error) {
	if err := s.checkAdminAction(caller, id, "deactivate"); err != nil {
		return nil, err
	}
	user, err := s.users.ToggleActive(ctx, caller.TenantID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user active flag changed",
		zap.String("user_id", id.String()),
		zap.Bool("is_active", user.IsActive),
		zap.String("changed_by", caller.UserID.String()),
	)
	return user, nil
}

// ResetPassword replaces a user's password without knowing the old one.
func (s *UserService) ResetPassword(ctx context.Context, caller permission.Caller, id uuid.UUID, password string) error {
	if !caller.Can(permission.UserUpdateAll) {
		return apperr.Forbidden("insufficient permissions to reset passwords")
	}
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, caller.TenantID, id, hash); err != nil {
		return err
	}
	s.logger.Info("password reset",
		zap.String("user_id", id.String()),
		zap.String("reset_by", caller.UserID.String()),
	)
	return nil
}

func (s *UserService) checkAdminAction(caller permission.Caller, id uuid.UUID, verb string) error {
	if !caller.Can(permission.UserUpdateAll) {
		return apperr.Forbidden("insufficient permissions to %s users", verb)
	}
	if caller.Is(id) {
		return apperr.Validation("you cannot %s yourself", verb)
	}
	return nil
}

func (s *UserService) load(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// update applies u to a loaded copy and writes it back.
func (s *UserService) update(ctx context.Context, caller permission.Caller, id uuid.UUID, u models.UserUpdate) (*models.User, error) {
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		if email == "" {
			return nil, apperr.Validation("email is required")
		}
		u.Email = &email
	}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if name == "" {
			return nil, apperr.Validation("display name is required")
		}
		u.DisplayName = &name
	}

	user, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	user.Apply(u)
	return s.users.Update(ctx, caller.TenantID, user)
}

// hashPassword enforces the minimum length and hashes with bcrypt.
func hashPassword(password string, cost int) (string, error) {
	if len(password) < 8 {
		return "", apperr.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
