package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mc855/authenticator/internal/audit"
	"github.com/mc855/authenticator/internal/auth"
	"github.com/mc855/authenticator/internal/obs"
)

// errorResponse is the error envelope every endpoint emits. Clients key off
// error_id; message and detail are for humans.
type errorResponse struct {
	StatusCode int    `json:"status_code"`
	ErrorID    string `json:"error_id"`
	Message    string `json:"message"`
	Detail     string `json:"detail"`
}

// statusByErrorID maps domain error ids onto HTTP statuses. Bad credentials
// return 403 while an unverified e-mail returns 401, mirroring what callers
// of the token endpoint already depend on.
var statusByErrorID = map[string]int{
	auth.ErrIDInvalidCredentials:   http.StatusForbidden,
	auth.ErrIDEmailNotVerified:     http.StatusUnauthorized,
	auth.ErrIDInvalidToken:         http.StatusUnauthorized,
	auth.ErrIDNotEnoughPermission:  http.StatusUnauthorized,
	auth.ErrIDUsernameConflict:     http.StatusConflict,
	auth.ErrIDEmailConflict:        http.StatusConflict,
	auth.ErrIDUserNotFound:         http.StatusNotFound,
	auth.ErrIDEmailAlreadyVerified: http.StatusUnprocessableEntity,
	auth.ErrIDUnprocessable:        http.StatusUnprocessableEntity,
	auth.ErrIDInvalidEmail:         http.StatusUnprocessableEntity,
	auth.ErrIDInternal:             http.StatusInternalServerError,
}

// writeDomainError translates a service error into the envelope. Unclassified
// errors are logged and collapsed into a generic 500 so internals never leak.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *auth.Error
	if !errors.As(err, &domainErr) {
		obs.Logger().WithError(err).WithField("path", r.URL.Path).Error("unhandled error")
		domainErr = auth.ErrInternal
	}
	status, ok := statusByErrorID[domainErr.ID]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, r, status, domainErr.ID, domainErr.Message, domainErr.Detail)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errorID, message, detail string) {
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		w.Header().Set("X-Request-Id", rid)
	}
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		ErrorID:    errorID,
		Message:    message,
		Detail:     detail,
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", "")
}
