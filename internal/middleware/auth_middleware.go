package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	UserEmailKey   = "user_email"
	UserRoleKey    = "user_role"
	AccessTokenKey = "access_token"
)

// RevocationCheck reports whether a token was revoked by logout.
type RevocationCheck func(ctx context.Context, token string) (bool, error)

type AuthMiddleware struct {
	jwtSecret string
	revoked   RevocationCheck
}

// NewAuthMiddleware creates the JWT middleware. revoked may be nil.
func NewAuthMiddleware(jwtSecret string, revoked RevocationCheck) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		revoked:   revoked,
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			var ok bool
			token, ok = bearerToken(authHeader)
			if !ok {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authorization header format")
				c.Abort()
				return
			}
		} else {
			// websocket clients cannot set headers
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.Unauthorized(c, "Authorization header is required")
				c.Abort()
				return
			}
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if stderrors.Is(err, util.ErrExpiredToken) {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Your session has expired")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid or expired token")
			}
			c.Abort()
			return
		}

		if m.isRevoked(c, token) {
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "You have been signed out")
			c.Abort()
			return
		}

		setClaims(c, claims, token)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate validates JWT token if present (optional)
// - If token is present and valid: sets user info in context
// - If token is missing or invalid: continues as a guest
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Debug("Token validation failed - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if m.isRevoked(c, token) {
			c.Next()
			return
		}

		setClaims(c, claims, token)
		c.Next()
	}
}

// isRevoked fails open: a blacklist outage must not sign everyone out.
func (m *AuthMiddleware) isRevoked(c *gin.Context, token string) bool {
	if m.revoked == nil {
		return false
	}
	revoked, err := m.revoked(c.Request.Context(), token)
	if err != nil {
		GetLoggerFromContext(c).Error("Failed to check token blacklist", err, map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		return false
	}
	return revoked
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *util.Claims, token string) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
	c.Set(AccessTokenKey, token)
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}

// GetAccessToken returns the bearer token of an authenticated request.
func GetAccessToken(c *gin.Context) (string, bool) {
	token, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", false
	}
	return token.(string), true
}
