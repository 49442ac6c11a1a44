package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/auth"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"github.com/lalith-99/estatehub/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session is what signup, register and login hand back to the client.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	TenantName  string
}

// RegisterInput joins an existing tenant. Tenant is its id or slug.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Tenant      string
	Role        string
}

// AuthService issues tokens. It is the only place passwords are compared.
type AuthService struct {
	users    repository.UserRepository
	tenants  repository.TenantRepository
	secret   string
	tokenTTL time.Duration
	logger   *zap.Logger

	// cost is bcrypt.DefaultCost outside tests.
	cost int
}

func NewAuthService(users repository.UserRepository, tenants repository.TenantRepository, secret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tenants:  tenants,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// Signup creates a new tenant with the caller as its admin.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	slug, err := s.freeSlug(ctx, in.TenantName)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenants.Create(ctx, strings.TrimSpace(in.TenantName), slug)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	user, err := s.users.Create(ctx, tenant.ID, email, in.DisplayName, hash, permission.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("admin_id", user.ID.String()),
	)
	return s.session(user)
}

// Register adds a user to an existing active tenant. Only the owner and
// user roles can be self-assigned; the default is user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	role := in.Role
	if role == "" {
		role = permission.RoleUser
	}
	if role != permission.RoleOwner && role != permission.RoleUser {
		return nil, apperr.Validation("role must be owner or user")
	}

	tenant, err := s.ResolveTenant(ctx, in.Tenant)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, tenant.ID, email, in.DisplayName, hash, role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", role),
	)
	return s.session(user)
}

// Login checks credentials. Unknown email and wrong password give the same
// error so the endpoint does not reveal which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticated("account is deactivated")
	}

	tenant, err := s.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if tenant == nil {
		return nil, apperr.Unauthenticated("tenant is not active")
	}
	return s.session(user)
}

// ResolveTenant finds an active tenant by id or slug.
func (s *AuthService) ResolveTenant(ctx context.Context, ref string) (*models.Tenant, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("tenant is required")
	}

	var (
		tenant *models.Tenant
		err    error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		tenant, err = s.tenants.GetByID(ctx, id)
	} else {
		tenant, err = s.tenants.GetBySlug(ctx, strings.ToLower(ref))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if tenant == nil {
		return nil, apperr.NotFound("tenant not found")
	}
	return tenant, nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, expires, err := auth.GenerateToken(auth.Subject{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: permission.ForRole(user.Role),
	}, s.secret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return apperr.Conflict("email already registered")
	}
	return nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and collapses everything but letters and digits
// into single dashes.
func Slugify(name string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "tenant"
	}
	return slug
}

// freeSlug returns the slug for name, with a short random suffix if it is
// already taken.
func (s *AuthService) freeSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for range 5 {
		existing, err := s.tenants.GetBySlug(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if existing == nil {
			return slug, nil
		}
		slug = base + "-" + uuid.NewString()[:6]
	}
	return "", fmt.Errorf("no free slug for %q", name)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
