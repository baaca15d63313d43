package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mc855/authenticator/internal/auth"
)

type stubService struct {
	login       func(ctx context.Context, username, password string) (auth.TokenOutput, error)
	register    func(ctx context.Context, input auth.RegisterInput) (auth.User, error)
	listUsers   func(ctx context.Context) ([]auth.User, error)
	authorizeFn func(ctx context.Context, token string, scopes []string) (auth.CurrentUser, error)
	sendLink    func(ctx context.Context, username string) error
	verifyEmail func(ctx context.Context, token string) (auth.VerificationView, error)
}

func (s *stubService) Login(ctx context.Context, username, password string) (auth.TokenOutput, error) {
	return s.login(ctx, username, password)
}

func (s *stubService) Register(ctx context.Context, input auth.RegisterInput) (auth.User, error) {
	return s.register(ctx, input)
}

func (s *stubService) ListUsers(ctx context.Context) ([]auth.User, error) {
	return s.listUsers(ctx)
}

func (s *stubService) Authorize(ctx context.Context, token string, scopes []string) (auth.CurrentUser, error) {
	return s.authorizeFn(ctx, token, scopes)
}

func (s *stubService) SendVerificationLink(ctx context.Context, username string) error {
	return s.sendLink(ctx, username)
}

func (s *stubService) VerifyEmail(ctx context.Context, token string) (auth.VerificationView, error) {
	return s.verifyEmail(ctx, token)
}

func newTestAPI(svc AuthService) http.Handler {
	return New(svc, ReadyProbe{}, "test").Handler()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var envelope errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return envelope
}

func TestRegisterCreated(t *testing.T) {
	guid := uuid.New()
	svc := &stubService{
		register: func(_ context.Context, input auth.RegisterInput) (auth.User, error) {
			if input.Username != "ra123456" {
				t.Fatalf("unexpected username: %s", input.Username)
			}
			return auth.User{
				GUID:     guid,
				Name:     input.Name,
				Username: input.Username,
				Email:    input.Email,
			}, nil
		},
	}
	handler := newTestAPI(svc)

	body := `{"name":"Maria Silva","username":"ra123456","email":"maria@unicamp.br","password":"s3cret!"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view userView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.GUID != guid.String() {
		t.Fatalf("unexpected guid: %s", view.GUID)
	}
	if view.EmailVerified {
		t.Fatal("new accounts must start unverified")
	}
}

func TestRegisterConflict(t *testing.T) {
	svc := &stubService{
		register: func(context.Context, auth.RegisterInput) (auth.User, error) {
			return auth.User{}, auth.ErrUsernameConflict
		},
	}
	handler := newTestAPI(svc)

	body := `{"name":"Maria","username":"ra123456","email":"maria@unicamp.br","password":"s3cret!"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.ErrorID != auth.ErrIDUsernameConflict {
		t.Fatalf("unexpected error id: %s", envelope.ErrorID)
	}
	if envelope.StatusCode != http.StatusConflict {
		t.Fatalf("envelope status mismatch: %d", envelope.StatusCode)
	}
}

func TestTokenSuccess(t *testing.T) {
	svc := &stubService{
		login: func(_ context.Context, username, password string) (auth.TokenOutput, error) {
			if username != "ra123456" || password != "s3cret!" {
				t.Fatalf("unexpected credentials: %s/%s", username, password)
			}
			return auth.TokenOutput{AccessToken: "tok", ExpiresIn: 1800, TokenType: "bearer"}, nil
		},
	}
	handler := newTestAPI(svc)

	form := url.Values{"username": {"ra123456"}, "password": {"s3cret!"}}
	req := httptest.NewRequest(http.MethodPost, "/users/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out auth.TokenOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.AccessToken != "tok" || out.ExpiresIn != 1800 || out.TokenType != "bearer" {
		t.Fatalf("unexpected token output: %+v", out)
	}
}

func TestTokenErrorStatuses(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantID     string
	}{
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusForbidden, auth.ErrIDInvalidCredentials},
		{"unverified email", auth.ErrEmailNotVerified, http.StatusUnauthorized, auth.ErrIDEmailNotVerified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				login: func(context.Context, string, string) (auth.TokenOutput, error) {
					return auth.TokenOutput{}, tc.err
				},
			}
			handler := newTestAPI(svc)

			form := url.Values{"username": {"ra123456"}, "password": {"wrong"}}
			req := httptest.NewRequest(http.MethodPost, "/users/token", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if envelope := decodeEnvelope(t, rec); envelope.ErrorID != tc.wantID {
				t.Fatalf("unexpected error id: %s", envelope.ErrorID)
			}
		})
	}
}

func TestTokenMissingFields(t *testing.T) {
	handler := newTestAPI(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/users/token", strings.NewReader("username=ra123456"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	handler := newTestAPI(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope.ErrorID != auth.ErrIDInvalidToken {
		t.Fatalf("unexpected error id: %s", envelope.ErrorID)
	}
}

func TestMeReturnsPrincipal(t *testing.T) {
	svc := &stubService{
		authorizeFn: func(_ context.Context, token string, scopes []string) (auth.CurrentUser, error) {
			if token != "tok" {
				t.Fatalf("unexpected token: %s", token)
			}
			if len(scopes) != 0 {
				t.Fatalf("me must not require scopes, got %v", scopes)
			}
			return auth.CurrentUser{Username: "ra123456", Name: "Maria Silva"}, nil
		},
	}
	handler := newTestAPI(svc)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user auth.CurrentUser
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user.Username != "ra123456" {
		t.Fatalf("unexpected username: %s", user.Username)
	}
}

func TestListUsersChecksScope(t *testing.T) {
	svc := &stubService{
		authorizeFn: func(_ context.Context, _ string, scopes []string) (auth.CurrentUser, error) {
			if len(scopes) != 1 || scopes[0] != auth.PermissionReadAllUsers {
				t.Fatalf("expected READ_ALL_USERS scope, got %v", scopes)
			}
			return auth.CurrentUser{}, auth.ErrNotEnoughPermission
		},
	}
	handler := newTestAPI(svc)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope.ErrorID != auth.ErrIDNotEnoughPermission {
		t.Fatalf("unexpected error id: %s", envelope.ErrorID)
	}
}

func TestListUsersReturnsViews(t *testing.T) {
	svc := &stubService{
		authorizeFn: func(context.Context, string, []string) (auth.CurrentUser, error) {
			return auth.CurrentUser{Username: "admin"}, nil
		},
		listUsers: func(context.Context) ([]auth.User, error) {
			return []auth.User{
				{GUID: uuid.New(), Username: "ra123456", Roles: []auth.Role{{ID: 1, Name: "ALUNO"}}},
			}, nil
		},
	}
	handler := newTestAPI(svc)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var views []userView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 1 || views[0].Username != "ra123456" {
		t.Fatalf("unexpected views: %+v", views)
	}
	if len(views[0].Roles) != 1 || views[0].Roles[0] != 1 {
		t.Fatalf("unexpected roles: %v", views[0].Roles)
	}
}

func TestVerifyEmail(t *testing.T) {
	svc := &stubService{
		verifyEmail: func(_ context.Context, token string) (auth.VerificationView, error) {
			if token != "code-1" {
				t.Fatalf("unexpected code: %s", token)
			}
			return auth.VerificationView{Name: "Maria Silva", Username: "ra123456"}, nil
		},
	}
	handler := newTestAPI(svc)

	req := httptest.NewRequest(http.MethodGet, "/users/verify-email?code=code-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected HTML response, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "Maria Silva") {
		t.Fatalf("confirmation page missing name:\n%s", rec.Body.String())
	}
}

func TestVerifyEmailMissingCode(t *testing.T) {
	handler := newTestAPI(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/users/verify-email", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestVerifyEmailInvalidCode(t *testing.T) {
	svc := &stubService{
		verifyEmail: func(context.Context, string) (auth.VerificationView, error) {
			return auth.VerificationView{}, auth.ErrInvalidOrExpiredToken
		},
	}
	handler := newTestAPI(svc)

	req := httptest.NewRequest(http.MethodGet, "/users/verify-email?code=bad", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSendVerificationLink(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusNoContent},
		{"unknown user", auth.ErrUserNotFound, http.StatusNotFound},
		{"already confirmed", auth.ErrEmailAlreadyVerified, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				sendLink: func(_ context.Context, username string) error {
					if username != "ra123456" {
						t.Fatalf("unexpected username: %s", username)
					}
					return tc.err
				},
			}
			handler := newTestAPI(svc)

			req := httptest.NewRequest(http.MethodPost, "/users/send-email-verification-link/ra123456", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestAPI(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rid := rec.Header().Get("X-Request-Id"); rid == "" {
		t.Fatal("expected request id header")
	}
}
