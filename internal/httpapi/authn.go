package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mc855/authenticator/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authorize validates the bearer token on the request and checks the given
// scopes. On failure it writes the error response and reports ok=false.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, requiredScopes ...string) (auth.CurrentUser, bool) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeDomainError(w, r, auth.ErrInvalidOrExpiredToken)
		return auth.CurrentUser{}, false
	}

	user, err := a.svc.Authorize(r.Context(), token, requiredScopes)
	if err != nil {
		writeDomainError(w, r, err)
		return auth.CurrentUser{}, false
	}
	return user, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
