package guard

import (
	"context"
	"log/slog"
)

type allowedKey struct{}

// WithAllowed stores the decision of an authorized request.
func WithAllowed(ctx context.Context, a Allowed) context.Context {
	return context.WithValue(ctx, allowedKey{}, a)
}

// FromContext returns the decision stored by Middleware.
func FromContext(ctx context.Context) (Allowed, bool) {
	a, ok := ctx.Value(allowedKey{}).(Allowed)
	return a, ok
}

// PrincipalFromContext returns the authorized principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	a, ok := FromContext(ctx)
	return a.Principal, ok
}

// LoggerExtractor adds the principal id to every log record of the request.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if p, ok := PrincipalFromContext(ctx); ok {
			return slog.String("principal_id", p.ID.String()), true
		}
		return slog.Attr{}, false
	}
}
