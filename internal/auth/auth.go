// Package auth issues and verifies session tokens and password hashes. It is
// peripheral account plumbing; the catalog and cart pipelines never import it.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"printforge-backend/internal/apperr"
)

const TokenTTL = 24 * time.Hour

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Claims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// TokenIssuer signs and verifies the HS256 session JWTs carried in the
// `token` cookie.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

func (t *TokenIssuer) Issue(userID uuid.UUID, isAdmin bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"admin": isAdmin,
		"iat":   now.Unix(),
		"exp":   now.Add(TokenTTL).Unix(),
	})
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Claims{}, apperr.Wrap(apperr.Auth, "invalid or expired session token", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.New(apperr.Auth, "invalid token claims")
	}
	sub, ok := mapClaims["sub"].(string)
	if !ok {
		return Claims{}, apperr.New(apperr.Auth, "token is missing a subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.Auth, "token subject is not a user id", err)
	}

	isAdmin, _ := mapClaims["admin"].(bool)
	return Claims{UserID: userID, IsAdmin: isAdmin}, nil
}

// NewVerificationToken returns the raw token mailed to the user and the
// sha256 hex digest stored in the database; only the digest is persisted.
func NewVerificationToken() (raw string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashVerificationToken(raw), nil
}

func HashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
