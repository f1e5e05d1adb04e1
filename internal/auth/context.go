// ABOUTME: Caller identity carried through request handlers via context
// ABOUTME: Provides WithIdentity/FromContext for the signed-in account

package auth

import (
	"context"
)

// Identity is the signed-in caller of a request.
type Identity struct {
	AccountID string
	Username  string
	SessionID string
}

// identityContextKey is the key type for storing Identity in context.Context.
type identityContextKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
