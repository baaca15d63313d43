// Package audit records security-relevant account events as structured log
// entries enriched with request and principal context.
package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mc855/authenticator/internal/auth"
	"github.com/mc855/authenticator/internal/obs"
)

type requestIDContextKey struct{}

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes one audit entry. The request id and, when the caller is
// authenticated, the principal's username are added automatically.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := obs.Logger().WithFields(logrus.Fields{
		"type":  "audit",
		"event": event,
	})
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if user, ok := auth.CurrentUserFromContext(ctx); ok {
		entry = entry.WithField("username", user.Username)
	}
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Info("audit event")
	return nil
}
