package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mc855/authenticator/internal/audit"
	"github.com/mc855/authenticator/internal/auth"
)

// userView is the public projection of an account. Roles carries role ids,
// matching the role claims inside access tokens.
type userView struct {
	GUID          string    `json:"guid"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Roles         []int64   `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
}

func viewOf(u auth.User) userView {
	return userView{
		GUID:          u.GUID.String(),
		Name:          u.Name,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Roles:         u.RoleIDs(),
		CreatedAt:     u.CreatedAt,
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleRegister(w, r)
	case http.MethodGet:
		a.handleListUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input auth.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeDomainError(w, r, auth.ErrUnprocessable.WithDetail("%s", err.Error()))
		return
	}

	user, err := a.svc.Register(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.created", map[string]any{
		"username": user.Username,
		"guid":     user.GUID.String(),
	})
	writeJSON(w, http.StatusCreated, viewOf(user))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.PermissionReadAllUsers); !ok {
		return
	}

	users, err := a.svc.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleToken implements the password credentials flow: a form-encoded body
// with username and password fields, answered with a bearer token.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeDomainError(w, r, auth.ErrUnprocessable.WithDetail("malformed form body"))
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeDomainError(w, r, auth.ErrUnprocessable.WithDetail("username and password are required"))
		return
	}

	out, err := a.svc.Login(r.Context(), username, password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"username":   username,
		"expires_in": out.ExpiresIn,
	})
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.authorize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeDomainError(w, r, auth.ErrUnprocessable.WithDetail("query parameter code is required"))
		return
	}

	view, err := a.svc.VerifyEmail(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.email.verified", map[string]any{
		"username": view.Username,
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, verifiedPage, html.EscapeString(view.Name))
}

const verifiedPage = `<!DOCTYPE html>
<html lang="pt-BR">
  <body>
    <h1>E-mail confirmado</h1>
    <p>Obrigado, %s! Sua conta foi verificada e você já pode fazer login.</p>
  </body>
</html>
`

func (a *API) handleSendVerificationLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	username := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/users/send-email-verification-link/"))
	if username == "" || strings.Contains(username, "/") {
		writeDomainError(w, r, auth.ErrUserNotFound)
		return
	}

	if err := a.svc.SendVerificationLink(r.Context(), username); err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.verification_link.sent", map[string]any{
		"username": username,
	})
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
