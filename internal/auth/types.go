package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted identity record. Uniqueness of username and email is
// ultimately enforced by the database; the service pre-checks to produce
// friendly conflict errors.
type User struct {
	ID            int64     `json:"-"`
	GUID          uuid.UUID `json:"guid"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Roles carries the role links loaded alongside the user record.
	Roles []Role `json:"-"`
}

// RoleIDs returns the ids of the roles linked to the user.
func (u User) RoleIDs() []int64 {
	ids := make([]int64, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// Role groups permissions and is assignable to users.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission is a named capability granted through roles.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UserFilter narrows FindUsers queries. Zero-value fields are ignored;
// MatchAny switches the populated fields from AND to OR semantics.
type UserFilter struct {
	Username string
	Email    string
	MatchAny bool
}

// TokenOutput is the login response payload. ExpiresIn always equals the
// configured access token lifetime in seconds.
type TokenOutput struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// RegisterInput carries the create-user request fields.
type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerificationView is returned after a successful e-mail confirmation.
type VerificationView struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}
