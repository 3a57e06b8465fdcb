package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ProfileCookieName = "kc_profile"
	ProfileIDKey      = "profile_id"

	profileCookieMaxAge = 365 * 24 * 60 * 60
)

// ProfileMiddleware gives every shopper a stable profile ID. The cart, checkout
// sessions and wishlist are all keyed by it.
func ProfileMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID := ""
		if cookie, err := c.Cookie(ProfileCookieName); err == nil {
			if id, err := uuid.Parse(cookie); err == nil {
				profileID = id.String()
			}
		}

		if profileID == "" {
			profileID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ProfileCookieName, profileID, profileCookieMaxAge, "/", "", secure, true)

			GetLoggerFromContext(c).Debug("Issued shopper profile", map[string]interface{}{
				"profile_id": profileID,
			})
		}

		c.Set(ProfileIDKey, profileID)
		c.Next()
	}
}

// GetProfileID returns the shopper profile of the request.
func GetProfileID(c *gin.Context) string {
	return c.GetString(ProfileIDKey)
}
