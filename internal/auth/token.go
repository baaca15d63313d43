package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies compact HMAC tokens for a single purpose.
// The service holds two independent codecs, one for access tokens and one
// for mail-verification tokens, each with its own secret.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithSigningMethod overrides the default HS256 method.
func WithSigningMethod(method jwt.SigningMethod) CodecOption {
	return func(c *TokenCodec) {
		if method != nil {
			c.method = method
		}
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewTokenCodec constructs a codec for the given signing secret.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	c := &TokenCodec{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// timestamped is implemented by claim types whose iat/exp the codec stamps.
type timestamped interface {
	jwt.Claims
	stamp(issuedAt, expiresAt time.Time)
}

// Encode stamps issued-at and expiry onto the claims and signs them.
// expiresAt - issuedAt always equals ttl exactly.
func (c *TokenCodec) Encode(claims timestamped, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	claims.stamp(now, now.Add(ttl))

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies signature, algorithm and expiry, filling the supplied
// claims value. Every failure mode collapses into ErrInvalidOrExpiredToken;
// callers never learn whether the signature or the clock was at fault.
func (c *TokenCodec) Decode(token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrInvalidOrExpiredToken
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidOrExpiredToken
	}
	return nil
}
