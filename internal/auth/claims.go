package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. Roles carries role ids, not
// permission names: permissions are resolved at authorization time so a role
// regrant takes effect without reissuing tokens.
type AccessClaims struct {
	GUID     string  `json:"guid"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Roles    []int64 `json:"roles"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) stamp(issuedAt, expiresAt time.Time) {
	c.IssuedAt = jwt.NewNumericDate(issuedAt)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)
}

// MailClaims is the payload of a mail-verification token. It is signed with a
// secret distinct from access tokens so one can never stand in for the other.
type MailClaims struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c *MailClaims) stamp(issuedAt, expiresAt time.Time) {
	c.IssuedAt = jwt.NewNumericDate(issuedAt)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)
}

// accessClaimsForUser builds the access claims embedded at login.
func accessClaimsForUser(u User) *AccessClaims {
	return &AccessClaims{
		GUID:     u.GUID.String(),
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Roles:    u.RoleIDs(),
	}
}

// Subject returns a stable principal label for diagnostics.
func (c *AccessClaims) Principal() string {
	if c.Username != "" {
		return c.Username
	}
	return c.GUID
}

// RoleIDStrings renders role ids for logging.
func (c *AccessClaims) RoleIDStrings() []string {
	out := make([]string, 0, len(c.Roles))
	for _, id := range c.Roles {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
