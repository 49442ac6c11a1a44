package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/permission"
)

const secret = "test-secret"

func testSubject() Subject {
	return Subject{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Email:       "owner@example.com",
		Role:        permission.RoleOwner,
		Permissions: permission.ForRole(permission.RoleOwner),
	}
}

func TestGenerateAndParse(t *testing.T) {
	sub := testSubject()
	token, expires, err := GenerateToken(sub, secret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) < 59*time.Minute {
		t.Errorf("expires = %v, want about an hour from now", expires)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != sub.UserID || claims.TenantID != sub.TenantID {
		t.Errorf("claims = %+v", claims)
	}

	caller := claims.Caller()
	if !caller.Can(permission.PropertyPublish) {
		t.Error("owner caller cannot publish")
	}
	if caller.Can(permission.PropertyUpdateAll) {
		t.Error("owner caller has property.update.all")
	}
}

func TestParseRejects(t *testing.T) {
	sub := testSubject()
	good, _, err := GenerateToken(sub, secret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expired, _, err := GenerateToken(sub, secret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	noTenant := sub
	noTenant.TenantID = uuid.Nil
	orphan, _, err := GenerateToken(noTenant, secret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:   sub.UserID,
		TenantID: sub.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   sub.UserID,
		TenantID: sub.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	otherIssuer, err := foreign.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", good, "other-secret"},
		{"expired", expired, secret},
		{"missing tenant", orphan, secret},
		{"alg none", unsigned, secret},
		{"other issuer", otherIssuer, secret},
		{"garbage", "not.a.token", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); err == nil {
				t.Fatal("err = nil, want rejection")
			}
		})
	}
}
