package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/auth"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"go.uber.org/zap"
)

const secret = "test-secret"

// stubResolver knows a fixed set of tenants by id and slug.
type stubResolver struct {
	tenants []*models.Tenant
}

func (r *stubResolver) ResolveTenant(_ context.Context, ref string) (*models.Tenant, error) {
	if ref == "" {
		return nil, apperr.Validation("tenant is required")
	}
	for _, t := range r.tenants {
		if t.ID.String() == ref || t.Slug == strings.ToLower(ref) {
			if !t.IsActive {
				break
			}
			return t, nil
		}
	}
	return nil, apperr.NotFound("tenant not found")
}

func init() {
	gin.SetMode(gin.TestMode)
}

// testRouter echoes the resolved caller back as JSON.
func testRouter(resolver TenantResolver, authMW gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", authMW, TenantMiddleware(resolver, zap.NewNop()), func(c *gin.Context) {
		caller := GetCaller(c)
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": caller.TenantID,
			"user_id":   caller.UserID,
			"anonymous": caller.IsAnonymous(),
		})
	})
	return r
}

func token(t *testing.T, tenantID uuid.UUID) string {
	t.Helper()
	tok, _, err := auth.GenerateToken(auth.Subject{
		UserID:      uuid.New(),
		TenantID:    tenantID,
		Role:        permission.RoleUser,
		Permissions: permission.ForRole(permission.RoleUser),
	}, secret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func do(r http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenantResolution(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", IsActive: true}
	other := &models.Tenant{ID: uuid.New(), Slug: "other", IsActive: true}
	closed := &models.Tenant{ID: uuid.New(), Slug: "closed", IsActive: false}
	resolver := &stubResolver{tenants: []*models.Tenant{acme, other, closed}}

	acmeToken := "Bearer " + token(t, acme.ID)
	closedToken := "Bearer " + token(t, closed.ID)

	tests := []struct {
		name       string
		strict     bool
		target     string
		headers    map[string]string
		wantStatus int
	}{
		{"anonymous by header", false, "/whoami", map[string]string{HeaderTenant: "acme"}, http.StatusOK},
		{"anonymous by query", false, "/whoami?tenant=" + acme.ID.String(), nil, http.StatusOK},
		{"anonymous without tenant", false, "/whoami", nil, http.StatusBadRequest},
		{"anonymous unknown tenant", false, "/whoami", map[string]string{HeaderTenant: "nope"}, http.StatusNotFound},
		{"anonymous inactive tenant", false, "/whoami", map[string]string{HeaderTenant: "closed"}, http.StatusNotFound},
		{"token alone", false, "/whoami", map[string]string{"Authorization": acmeToken}, http.StatusOK},
		{"token with matching header", false, "/whoami", map[string]string{"Authorization": acmeToken, HeaderTenant: "acme"}, http.StatusOK},
		{"token with other tenant", false, "/whoami", map[string]string{"Authorization": acmeToken, HeaderTenant: "other"}, http.StatusForbidden},
		{"token for inactive tenant", false, "/whoami", map[string]string{"Authorization": closedToken}, http.StatusNotFound},
		{"bad token on optional route", false, "/whoami", map[string]string{"Authorization": "Bearer junk", HeaderTenant: "acme"}, http.StatusUnauthorized},
		{"wrong scheme", false, "/whoami", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"strict without token", true, "/whoami", map[string]string{HeaderTenant: "acme"}, http.StatusUnauthorized},
		{"strict with token", true, "/whoami", map[string]string{"Authorization": acmeToken}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMW := OptionalAuth(secret)
			if tt.strict {
				authMW = AuthMiddleware(secret)
			}
			w := do(testRouter(resolver, authMW), tt.target, tt.headers)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAnonymousCallerIsScoped(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", IsActive: true}
	r := testRouter(&stubResolver{tenants: []*models.Tenant{acme}}, OptionalAuth(secret))

	w := do(r, "/whoami", map[string]string{HeaderTenant: "ACME"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, acme.ID.String()) || !strings.Contains(body, `"anonymous":true`) {
		t.Errorf("body = %s", body)
	}
}

func TestGetCallerDefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	caller := GetCaller(c)
	if !caller.IsAnonymous() || caller.TenantID != uuid.Nil {
		t.Errorf("caller = %+v, want anonymous with no tenant", caller)
	}
	if GetUserID(c) != uuid.Nil || GetTenantID(c) != uuid.Nil {
		t.Error("ids should be nil without authentication")
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := do(r, "/ping", nil)
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	w = do(r, "/ping", map[string]string{HeaderRequestID: "abc-123"})
	if got := w.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}
