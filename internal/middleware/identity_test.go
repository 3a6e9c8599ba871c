package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printforge-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func identityRouter(t *testing.T, capture *models.CartIdentity) *gin.Engine {
	router := gin.New()
	router.Use(CartIdentity(false))
	router.GET("/whoami", func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		require.True(t, ok)
		*capture = identity
		c.Status(http.StatusOK)
	})
	return router
}

func TestCartIdentity_MintsGuestCookie(t *testing.T) {
	var got models.CartIdentity
	router := identityRouter(t, &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Nil(t, got.UserID)
	require.NotEmpty(t, got.GuestID)
	_, err := uuid.Parse(got.GuestID)
	assert.NoError(t, err)

	// The minted id comes back as an http-only cookie.
	cookies := w.Result().Cookies()
	var guest *http.Cookie
	for _, ck := range cookies {
		if ck.Name == GuestCookie {
			guest = ck
		}
	}
	require.NotNil(t, guest)
	assert.Equal(t, got.GuestID, guest.Value)
	assert.True(t, guest.HttpOnly)
	assert.Equal(t, guestCookieMaxAge, guest.MaxAge)
}

func TestCartIdentity_ReusesExistingCookie(t *testing.T) {
	var got models.CartIdentity
	router := identityRouter(t, &got)

	existing := uuid.New().String()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookie, Value: existing})
	router.ServeHTTP(w, req)

	assert.Equal(t, existing, got.GuestID)
	// No replacement cookie is set for a returning guest.
	for _, ck := range w.Result().Cookies() {
		assert.NotEqual(t, GuestCookie, ck.Name)
	}
}

func TestCartIdentity_UserWinsOverGuestCookie(t *testing.T) {
	userID := uuid.New()
	var got models.CartIdentity

	router := gin.New()
	router.Use(func(c *gin.Context) {
		// Simulates AuthOptional attaching a session user.
		c.Set(UserIDKey, userID)
	})
	router.Use(CartIdentity(false))
	router.GET("/whoami", func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		got = identity
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookie, Value: uuid.New().String()})
	router.ServeHTTP(w, req)

	require.NotNil(t, got.UserID)
	assert.Equal(t, userID, *got.UserID)
	assert.Empty(t, got.GuestID)
}
