package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/wowsandek/scud-portal/pkg/config"
)

// Roles carried in the session token.
const (
	RoleAdmin  = "admin"
	RoleTenant = "tenant"
)

var (
	secret     = []byte("secret-key")
	expiration = 168 * time.Hour
)

// Claims represents the JWT claims for a portal session
type Claims struct {
	TenantID uint   `json:"tenantId"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the session belongs to mall administration.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Initialize configures the signing key and token lifetime
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expiration = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// GenerateToken creates a JWT token for the given tenant account
func GenerateToken(tenantID uint, name, email, role string) (string, error) {
	claims := Claims{
		TenantID: tenantID,
		Name:     name,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
