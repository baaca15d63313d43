package auth

import "sort"

// CurrentUser is the fixed-shape identity attached to an authorized request:
// the decoded claims plus the permission set resolved from the role links.
type CurrentUser struct {
	GUID        string   `json:"guid"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []int64  `json:"roles"`
	Permissions []string `json:"permissions"`

	permissionSet map[string]struct{}
}

// NewCurrentUser builds the principal view from decoded claims and the
// permissions resolved for its roles.
func NewCurrentUser(claims *AccessClaims, perms map[string]struct{}) CurrentUser {
	names := make([]string, 0, len(perms))
	for name := range perms {
		names = append(names, name)
	}
	sort.Strings(names)
	return CurrentUser{
		GUID:          claims.GUID,
		Name:          claims.Name,
		Username:      claims.Username,
		Email:         claims.Email,
		Roles:         claims.Roles,
		Permissions:   names,
		permissionSet: perms,
	}
}

// HasPermission reports whether the principal holds the named permission.
func (u CurrentUser) HasPermission(name string) bool {
	if u.permissionSet != nil {
		_, ok := u.permissionSet[name]
		return ok
	}
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
