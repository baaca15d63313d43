// Package httpapi exposes the authentication service over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/mc855/authenticator/internal/auth"
	"github.com/mc855/authenticator/internal/obs"
)

// AuthService is the slice of the domain service the HTTP layer depends on.
// Handler tests substitute a stub.
type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.TokenOutput, error)
	Register(ctx context.Context, input auth.RegisterInput) (auth.User, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	Authorize(ctx context.Context, token string, requiredScopes []string) (auth.CurrentUser, error)
	SendVerificationLink(ctx context.Context, username string) error
	VerifyEmail(ctx context.Context, token string) (auth.VerificationView, error)
}

// ReadyProbe reports whether the service can reach its database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        AuthService
	readyProbe ReadyProbe
	version    string
}

func New(svc AuthService, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/users", a.handleUsers)
	a.mux.HandleFunc("/users/token", a.handleToken)
	a.mux.HandleFunc("/users/me", a.handleMe)
	a.mux.HandleFunc("/users/verify-email", a.handleVerifyEmail)
	a.mux.HandleFunc("/users/send-email-verification-link/", a.handleSendVerificationLink)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found", "")
	})

	return a
}

// Handler wraps the mux with the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authenticator",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
