package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mc855/authenticator/internal/obs"
)

const (
	defaultAccessTTL = 30 * time.Minute
	defaultMailTTL   = 10 * time.Minute

	sideEffectTimeout = 30 * time.Second
)

// VerificationMail carries everything the mail collaborator needs to render
// and deliver the confirmation message.
type VerificationMail struct {
	To       string
	Name     string
	Username string
	Link     string
}

// Mailer delivers the verification e-mail. Implementations run off the
// request path; the service never waits for delivery.
type Mailer interface {
	SendVerification(ctx context.Context, mail VerificationMail) error
}

// Publisher pushes account-event notifications to interested services.
type Publisher interface {
	Publish(ctx context.Context, message, topic string) error
}

// Service implements the authentication and authorization pipeline:
// registration, credential verification, token issuance and validation,
// permission resolution and the e-mail verification flow.
type Service struct {
	store  Store
	policy EmailPolicy

	accessCodec *TokenCodec
	mailCodec   *TokenCodec
	accessTTL   time.Duration
	mailTTL     time.Duration

	serverDNS string
	mailer    Mailer
	publisher Publisher
	userTopic string

	now func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithEmailPolicy overrides the institutional e-mail policy.
func WithEmailPolicy(policy EmailPolicy) ServiceOption {
	return func(s *Service) error {
		if policy != nil {
			s.policy = policy
		}
		return nil
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithMailTTL configures the mail-verification token lifetime.
func WithMailTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.mailTTL = ttl
		}
		return nil
	}
}

// WithServerDNS sets the public address embedded into verification links.
func WithServerDNS(dns string) ServiceOption {
	return func(s *Service) error {
		s.serverDNS = strings.TrimRight(strings.TrimSpace(dns), "/")
		return nil
	}
}

// WithMailer wires the e-mail collaborator.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) error {
		s.mailer = m
		return nil
	}
}

// WithPublisher wires the notification collaborator and its topic.
func WithPublisher(p Publisher, topic string) ServiceOption {
	return func(s *Service) error {
		s.publisher = p
		s.userTopic = strings.TrimSpace(topic)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service. The two secrets must differ: a
// token minted for one purpose must never validate under the other.
func NewService(store Store, accessSecret, mailSecret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if strings.TrimSpace(accessSecret) == strings.TrimSpace(mailSecret) {
		return nil, errors.New("auth: access and mail token secrets must differ")
	}
	policy, err := NewDomainSuffixPolicy(DefaultEmailDomain)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:     store,
		policy:    policy,
		accessTTL: defaultAccessTTL,
		mailTTL:   defaultMailTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	clock := WithCodecClock(s.now)
	if s.accessCodec, err = NewTokenCodec(accessSecret, clock); err != nil {
		return nil, fmt.Errorf("auth: access codec: %w", err)
	}
	if s.mailCodec, err = NewTokenCodec(mailSecret, clock); err != nil {
		return nil, fmt.Errorf("auth: mail codec: %w", err)
	}
	return s, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *Service) AccessTokenTTL() time.Duration { return s.accessTTL }

// EnsureBuiltins verifies that the seeded roles exist, logging a warning for
// each missing one. The service still starts; role management is external.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	names := make([]string, 0, len(BuiltinRoles))
	for _, r := range BuiltinRoles {
		names = append(names, r.Name)
	}
	roles, err := s.store.FindRoles(ctx, names)
	if err != nil {
		return err
	}
	found := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		found[r.Name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := found[name]; !ok {
			obs.Logger().WithField("role", name).Warn("builtin role missing; run the seed migrations")
		}
	}
	return nil
}

// Authenticate verifies username and password against the stored record.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	users, err := s.store.FindUsers(ctx, UserFilter{Username: username})
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 || !VerifyPassword(users[0].PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return users[0], nil
}

// Login authenticates the credentials and issues a fresh access token. The
// e-mail must have been verified first; that failure is distinct from bad
// credentials. ExpiresIn in the response equals the lifetime used to stamp
// the token's expiry.
func (s *Service) Login(ctx context.Context, username, password string) (TokenOutput, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return TokenOutput{}, err
	}
	if !user.EmailVerified {
		return TokenOutput{}, ErrEmailNotVerified.WithDetail(
			"the e-mail %s has not been verified yet", user.Email,
		)
	}

	token, err := s.accessCodec.Encode(accessClaimsForUser(user), s.accessTTL)
	if err != nil {
		return TokenOutput{}, err
	}
	return TokenOutput{
		AccessToken: token,
		ExpiresIn:   int64(s.accessTTL / time.Second),
		TokenType:   "Bearer",
	}, nil
}

// Register validates, stores and announces a new (unverified) user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if err := input.Validate(); err != nil {
		return User{}, ErrUnprocessable.WithDetail("%v", err)
	}
	if err := s.policy.ValidateEmail(input.Email); err != nil {
		return User{}, err
	}

	// Pre-check for conflicts so the common case gets a friendly error.
	// The database unique constraints remain the authority: a concurrent
	// insert slipping past this check surfaces as the same conflict error
	// via the store (see Store).
	existing, err := s.store.FindUsers(ctx, UserFilter{
		Username: input.Username,
		Email:    input.Email,
		MatchAny: true,
	})
	if err != nil {
		return User{}, err
	}
	if len(existing) > 0 {
		conflict := existing[0]
		if conflict.Username == input.Username {
			return User{}, ErrUsernameConflict.WithDetail(
				"a user with the username (%s) already exists", conflict.Username,
			)
		}
		return User{}, ErrEmailConflict.WithDetail(
			"a user with the e-mail (%s) already exists", conflict.Email,
		)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.store.InsertUser(ctx, User{
		GUID:         uuid.New(),
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return User{}, err
	}

	s.publishUserCreated(user)
	return user, nil
}

// ListUsers returns every registered user.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.FindUsers(ctx, UserFilter{})
}

// ResolvePermissions expands a set of role ids into the union of permission
// names those roles grant. An empty input yields an empty set, not an error.
// Duplicate links collapse here by construction.
func (s *Service) ResolvePermissions(ctx context.Context, roleIDs []int64) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if len(roleIDs) == 0 {
		return set, nil
	}
	perms, err := s.store.FindPermissionsByRoleIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range perms {
		set[p.Name] = struct{}{}
	}
	return set, nil
}

// Authorize decodes an access token and checks the required scopes against
// the permissions resolved from the token's roles. An empty scope list means
// authentication only: any validly decoded token passes.
func (s *Service) Authorize(ctx context.Context, token string, requiredScopes []string) (CurrentUser, error) {
	claims := &AccessClaims{}
	if err := s.accessCodec.Decode(token, claims); err != nil {
		return CurrentUser{}, err
	}

	perms, err := s.ResolvePermissions(ctx, claims.Roles)
	if err != nil {
		return CurrentUser{}, err
	}
	for _, scope := range requiredScopes {
		if _, ok := perms[scope]; !ok {
			return CurrentUser{}, ErrNotEnoughPermission.WithDetail(
				"the user %s does not have the permission %s required by this resource",
				claims.Principal(), scope,
			)
		}
	}
	return NewCurrentUser(claims, perms), nil
}

// SendVerificationLink mints a short-lived mail token for the user and hands
// the rendered link to the mail collaborator. Delivery is fire-and-forget:
// the request neither waits for nor fails on mail errors.
func (s *Service) SendVerificationLink(ctx context.Context, username string) error {
	users, err := s.store.FindUsers(ctx, UserFilter{Username: username})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrUserNotFound.WithDetail("no user with the username (%s)", username)
	}
	user := users[0]
	if user.EmailVerified {
		return ErrEmailAlreadyVerified.WithDetail(
			"the e-mail %s has already been confirmed", user.Email,
		)
	}

	token, err := s.mailCodec.Encode(&MailClaims{
		Name:     user.Name,
		Email:    user.Email,
		Username: user.Username,
	}, s.mailTTL)
	if err != nil {
		return err
	}
	link := s.serverDNS + "/users/verify-email?code=" + url.QueryEscape(token)

	if s.mailer == nil {
		obs.Logger().WithField("username", user.Username).Warn("no mailer configured; verification link dropped")
		return nil
	}
	mail := VerificationMail{
		To:       user.Email,
		Name:     user.Name,
		Username: user.Username,
		Link:     link,
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.mailer.SendVerification(sendCtx, mail); err != nil {
			obs.Logger().WithError(err).WithField("username", mail.Username).
				Warn("verification mail dispatch failed")
		}
	}()
	return nil
}

// VerifyEmail consumes a mail-verification token and marks the account
// verified. Decode failures and unknown (email, username) pairs return the
// identical error on purpose.
func (s *Service) VerifyEmail(ctx context.Context, token string) (VerificationView, error) {
	claims := &MailClaims{}
	if err := s.mailCodec.Decode(token, claims); err != nil {
		return VerificationView{}, err
	}

	users, err := s.store.FindUsers(ctx, UserFilter{
		Username: claims.Username,
		Email:    claims.Email,
	})
	if err != nil {
		return VerificationView{}, err
	}
	if len(users) == 0 {
		return VerificationView{}, ErrInvalidOrExpiredToken
	}

	user, err := s.store.MarkEmailVerified(ctx, users[0].ID)
	if err != nil {
		return VerificationView{}, err
	}
	return VerificationView{
		Name:     user.Name,
		Email:    user.Email,
		Username: user.Username,
	}, nil
}

func (s *Service) publishUserCreated(user User) {
	if s.publisher == nil || s.userTopic == "" {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"event":    "user.created",
		"guid":     user.GUID.String(),
		"username": user.Username,
		"email":    user.Email,
	})
	if err != nil {
		return
	}
	topic := s.userTopic
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, string(payload), topic); err != nil {
			obs.Logger().WithError(err).WithField("username", user.Username).
				Warn("user-created notification failed")
		}
	}()
}
