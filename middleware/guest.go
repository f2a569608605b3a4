package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	GuestSessionHeader = "X-Cart-Session"
	GuestSessionCookie = "cart_session"
	ContextSessionKey  = "cart_session"

	guestSessionMaxAge = 30 * 24 * 60 * 60
	maxSessionKeyLen   = 64
)

// GuestSession gives every request a cart session token, taken from the
// X-Cart-Session header or the cart_session cookie, or freshly minted. The
// token is echoed back so clients without cookies can keep it.
func GuestSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(GuestSessionHeader))
		if key == "" {
			if cookie, err := c.Cookie(GuestSessionCookie); err == nil {
				key = strings.TrimSpace(cookie)
			}
		}
		if key == "" || len(key) > maxSessionKeyLen {
			key = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(GuestSessionCookie, key, guestSessionMaxAge, "/", "", false, true)
		c.Header(GuestSessionHeader, key)
		c.Set(ContextSessionKey, key)
		c.Next()
	}
}

func CurrentSessionKey(c *gin.Context) string {
	return c.GetString(ContextSessionKey)
}
