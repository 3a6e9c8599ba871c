package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/auth"
	"printforge-backend/internal/mailer"
	"printforge-backend/internal/middleware"
	"printforge-backend/internal/models"
)

const verificationTTL = 24 * time.Hour

// UserStore is the slice of the database the account routes touch.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, u *models.User) error
	MarkUserVerified(ctx context.Context, id uuid.UUID) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error
}

type UsersHandler struct {
	store         UserStore
	issuer        *auth.TokenIssuer
	mail          mailer.Mailer
	secureCookies bool
}

func NewUsersHandler(store UserStore, issuer *auth.TokenIssuer, mail mailer.Mailer, secureCookies bool) *UsersHandler {
	return &UsersHandler{
		store:         store,
		issuer:        issuer,
		mail:          mail,
		secureCookies: secureCookies,
	}
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

// Register handles POST /auth/register. Registering an email that already
// exists but is still unverified re-sends the verification mail instead of
// failing, so a lost first mail is recoverable.
func (h *UsersHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid registration request", err))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Unknown, "failed to hash password", err))
		return
	}

	raw, digest, err := auth.NewVerificationToken()
	if err != nil {
		fail(c, apperr.Wrap(apperr.Unknown, "failed to generate verification token", err))
		return
	}
	expires := time.Now().Add(verificationTTL)

	user := &models.User{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               email,
		PasswordHash:        hash,
		VerificationToken:   digest,
		VerificationExpires: &expires,
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			if h.resendIfUnverified(c, email) {
				return
			}
		}
		fail(c, err)
		return
	}

	if err := h.mail.SendVerification(c.Request.Context(), email, raw); err != nil {
		fail(c, apperr.Wrap(apperr.External, "failed to send verification email", err))
		return
	}
	c.JSON(http.StatusCreated, models.MessageResponse{Message: "account created, check your email to verify it"})
}

// resendIfUnverified reissues the verification token for an existing
// unverified account and reports whether it handled the response.
func (h *UsersHandler) resendIfUnverified(c *gin.Context, email string) bool {
	existing, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if err != nil || existing.IsVerified {
		return false
	}

	raw, digest, err := auth.NewVerificationToken()
	if err != nil {
		return false
	}
	expires := time.Now().Add(verificationTTL)
	if err := h.store.SetVerificationToken(c.Request.Context(), existing.ID, digest, expires); err != nil {
		return false
	}
	if err := h.mail.SendVerification(c.Request.Context(), email, raw); err != nil {
		return false
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "verification email re-sent"})
	return true
}

// Verify handles GET /auth/verify?token=...
func (h *UsersHandler) Verify(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		fail(c, apperr.New(apperr.Validation, "verification token is required"))
		return
	}

	user, err := h.store.GetUserByVerificationToken(c.Request.Context(), auth.HashVerificationToken(raw))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.MarkUserVerified(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "email verified, you can now log in"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login. The session token lives in an http-only
// SameSite=Strict cookie rather than the response body.
func (h *UsersHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid login request", err))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// One message for both cases; login must not confirm which emails
		// have accounts.
		fail(c, apperr.New(apperr.Auth, "invalid email or password"))
		return
	}
	if !user.IsVerified {
		fail(c, apperr.New(apperr.Auth, "email address is not verified"))
		return
	}

	token, err := h.issuer.Issue(user.ID, user.IsAdmin)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Unknown, "failed to issue session token", err))
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, token, int(auth.TokenTTL.Seconds()), "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "logged in",
		"user": gin.H{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"is_admin":   user.IsAdmin,
		},
	})
}

// Profile handles GET /users/me.
func (h *UsersHandler) Profile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// UpdateProfile handles PUT /users/me. Empty fields keep their current
// values.
func (h *UsersHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.Validation, "invalid profile request", err))
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}

	if err := h.store.UpdateUserProfile(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"user": gin.H{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"is_admin":   user.IsAdmin,
		},
	})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *UsersHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "logged out"})
}
