package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/permission"
)

const issuer = "estatehub"

// Claims is the payload inside every JWT token.
//
// Permissions are copied from the user's role when the token is issued, so
// the middleware can build a permission.Caller without a database hit. A
// role change takes effect on the next login.
type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	jwt.RegisteredClaims
}

// Subject is who a token is issued for.
type Subject struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Email       string
	Role        string
	Permissions permission.Set
}

// Caller turns verified claims into the caller handed to the services.
// Unknown permission strings are dropped.
func (c *Claims) Caller() permission.Caller {
	return permission.Caller{
		UserID:      c.UserID,
		TenantID:    c.TenantID,
		Permissions: permission.ParseSet(c.Permissions),
	}
}

// GenerateToken creates a signed HS256 JWT for sub that expires after ttl.
// It returns the token and its expiry.
func GenerateToken(sub Subject, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)

	claims := Claims{
		UserID:      sub.UserID,
		TenantID:    sub.TenantID,
		Email:       sub.Email,
		Role:        sub.Role,
		Permissions: sub.Permissions.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a JWT string and extracts the claims.
//
// It verifies the signature, the expiry, the issuer, and that the signing
// method is HMAC. The last check stops "alg: none" and RSA/HMAC confusion
// tokens before the key is ever used.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == uuid.Nil || claims.TenantID == uuid.Nil {
		return nil, fmt.Errorf("token is missing user or tenant")
	}
	return claims, nil
}
