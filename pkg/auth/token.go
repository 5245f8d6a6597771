package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"smartreceipts/models"
)

// Context keys set by Middleware.
const (
	CtxUsername = "username"
	CtxRole     = "role"
	CtxUserID   = "userID"
)

// Claims is the decoded payload of an access token.
type Claims struct {
	UserID   uint
	Username string
	Role     string
}

// IssueAccessToken signs a short-lived HS256 token for user.
func (s *Service) IssueAccessToken(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":      user.ID,
		"username": user.Username,
		"role":     user.Role.Name,
		"exp":      s.now().Add(s.AccessTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// ParseAccessToken verifies tokenString and returns its claims.
func (s *Service) ParseAccessToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	var c Claims
	c.Username, _ = mc["username"].(string)
	c.Role, _ = mc["role"].(string)
	if uid, ok := mc["uid"].(float64); ok && uid > 0 {
		c.UserID = uint(uid)
	}
	if c.UserID == 0 || c.Username == "" {
		return Claims{}, errors.New("invalid claims")
	}
	return c, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's identity in the gin context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		claims, err := s.ParseAccessToken(strings.TrimSpace(tokenString))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated user's id, or 0.
func UserID(c *gin.Context) uint {
	return c.GetUint(CtxUserID)
}

// Username returns the authenticated username.
func Username(c *gin.Context) string {
	return c.GetString(CtxUsername)
}

// IsAdmin reports whether the caller has the administrator role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(CtxRole) == models.RoleAdministrator
}

// ScopeUserID is the user id queries should filter on: 0 for administrators.
func ScopeUserID(c *gin.Context) uint {
	if IsAdmin(c) {
		return 0
	}
	return UserID(c)
}
