package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/models"
)

const (
	identityKey = "cart_identity"

	// GuestCookie persists an anonymous cart owner across requests.
	GuestCookie       = "guestId"
	guestCookieMaxAge = 30 * 24 * 60 * 60 // 30 days
)

// CartIdentity resolves the single cart-ownership key for the request:
// the authenticated user when one is attached, otherwise the guest cookie,
// minting a fresh guest id when none exists. The key is resolved exactly once
// and stored in the context; a mid-request re-resolve could mint two guest
// ids and split the cart. Must run after AuthRequired/AuthOptional.
func CartIdentity(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity models.CartIdentity

		if v, ok := c.Get(UserIDKey); ok {
			if userID, ok := v.(uuid.UUID); ok {
				identity.UserID = &userID
			}
		}

		if identity.UserID == nil {
			guestID, err := c.Cookie(GuestCookie)
			if err != nil || guestID == "" {
				guestID = uuid.New().String()
				c.SetCookie(GuestCookie, guestID, guestCookieMaxAge, "/", "", secureCookies, true)
			}
			identity.GuestID = guestID
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity resolved by CartIdentity.
func IdentityFrom(c *gin.Context) (models.CartIdentity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.CartIdentity{}, false
	}
	identity, ok := v.(models.CartIdentity)
	return identity, ok
}
