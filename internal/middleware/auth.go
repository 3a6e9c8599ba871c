package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printforge-backend/internal/auth"
	"printforge-backend/internal/models"
)

const (
	UserIDKey  = "user_id"
	IsAdminKey = "is_admin"

	// TokenCookie is the session cookie: http-only, SameSite=Strict, 24h.
	TokenCookie = "token"
)

// AuthRequired rejects requests without a valid session cookie.
func AuthRequired(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := sessionClaims(c, issuer)
		if !ok {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "authentication required"})
			c.Abort()
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Set(IsAdminKey, claims.IsAdmin)
		c.Next()
	}
}

// AuthOptional attaches the user identity when a valid session cookie is
// present and lets the request through either way; cart and checkout routes
// serve guests too.
func AuthOptional(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := sessionClaims(c, issuer); ok {
			c.Set(UserIDKey, claims.UserID)
			c.Set(IsAdminKey, claims.IsAdmin)
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := c.Get(IsAdminKey); !ok || isAdmin != true {
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context, issuer *auth.TokenIssuer) (auth.Claims, bool) {
	tokenString, err := c.Cookie(TokenCookie)
	if err != nil || tokenString == "" {
		return auth.Claims{}, false
	}
	claims, err := issuer.Verify(tokenString)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}
