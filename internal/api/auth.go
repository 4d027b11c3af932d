package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/compliance-notifier/internal/model"
)

const principalKey = "principal"

// Claims is the bearer token payload. Subject carries the user ID.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// principal is the authenticated caller.
type principal struct {
	UserID string
	Role   model.Role
}

func (p principal) admin() bool {
	return p.Role == model.RoleAdmin
}

// owns reports whether the caller may see a record belonging to userID.
func (p principal) owns(userID *string) bool {
	return p.admin() || (userID != nil && *userID == p.UserID)
}

// IssueToken signs an HS256 token for userID valid for ttl from now.
func IssueToken(secret []byte, userID string, role model.Role, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticate requires a valid "Authorization: Bearer" token.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := parseToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		role := claims.Role
		if role == "" {
			role = model.RoleUser
		}
		c.Set(principalKey, principal{UserID: claims.Subject, Role: role})
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentPrincipal(c).admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(principal)
	return p
}
