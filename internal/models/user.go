package models

import (
	"time"

	"github.com/google/uuid"
)

// User account. Verification moves Unverified -> Verified once the token
// sent by mail is presented; nothing in the catalog or cart pipelines reads
// these fields.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	IsAdmin             bool       `json:"is_admin"`
	IsVerified          bool       `json:"is_verified"`
	VerificationToken   string     `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}
