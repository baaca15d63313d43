package auth

import "context"

type currentUserContextKey struct{}
type tokenContextKey struct{}

// ContextWithCurrentUser attaches the authorized principal to the context.
func ContextWithCurrentUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey{}, &user)
}

// CurrentUserFromContext extracts the authorized principal from the context.
func CurrentUserFromContext(ctx context.Context) (CurrentUser, bool) {
	if ctx == nil {
		return CurrentUser{}, false
	}
	v, ok := ctx.Value(currentUserContextKey{}).(*CurrentUser)
	if !ok || v == nil {
		return CurrentUser{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
