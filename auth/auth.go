// Package auth builds the per-request context that carries the current user.
// A bearer token is valid context only if it verifies under the service's
// signing key and references an existing user; every other outcome, including
// a malformed or stale token, downgrades the request to anonymous rather than
// rejecting it.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lewisdbentley/graphbook/token"
)

// bearerScheme is matched case-insensitively against the Authorization header.
const bearerScheme = "bearer "

type currentUserKey struct{}

// UserLoader resolves a verified token's user id to a full user record,
// with its relational attachments loaded in one batched fetch.
type UserLoader[U any] interface {
	UserForToken(ctx context.Context, userID string) (*U, error)
}

// LoaderFunc adapts a plain function to a UserLoader.
type LoaderFunc[U any] func(ctx context.Context, userID string) (*U, error)

// UserForToken implements UserLoader.
func (f LoaderFunc[U]) UserForToken(ctx context.Context, userID string) (*U, error) {
	return f(ctx, userID)
}

// Builder is the per-request context builder for one service.
type Builder[U any] struct {
	tokens *token.Service
	loader UserLoader[U]
	logger *slog.Logger
}

// NewBuilder creates a context builder backed by a token service and a
// user loader.
func NewBuilder[U any](tokens *token.Service, loader UserLoader[U], logger *slog.Logger) *Builder[U] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder[U]{
		tokens: tokens,
		loader: loader,
		logger: logger.With("component", "auth"),
	}
}

// Context resolves the raw Authorization header value into a request context.
// Absent header, wrong scheme, failed verification, or an unknown user id all
// produce an anonymous context; only a fully resolved user is attached.
func (b *Builder[U]) Context(ctx context.Context, authorization string) context.Context {
	if authorization == "" || !strings.HasPrefix(strings.ToLower(authorization), bearerScheme) {
		return ctx
	}

	claims, err := b.tokens.Verify(authorization[len(bearerScheme):])
	if err != nil {
		// Deliberate low-friction policy: bad tokens fall over to anonymous.
		b.logger.Debug("token verification failed, proceeding anonymous", "error", err)
		return ctx
	}

	user, err := b.loader.UserForToken(ctx, claims.UserID)
	if err != nil {
		b.logger.Debug("user lookup for token failed, proceeding anonymous",
			"user_id", claims.UserID, "error", err)
		return ctx
	}

	return WithCurrentUser(ctx, user)
}

// WithCurrentUser returns a context carrying the given user.
func WithCurrentUser[U any](ctx context.Context, user *U) context.Context {
	return context.WithValue(ctx, currentUserKey{}, user)
}

// CurrentUser extracts the current user from a request context.
// The second return is false for anonymous contexts.
func CurrentUser[U any](ctx context.Context) (*U, bool) {
	user, ok := ctx.Value(currentUserKey{}).(*U)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
