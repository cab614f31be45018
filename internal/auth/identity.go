// Package auth carries the authenticated caller through request contexts
// and issues and verifies the bearer tokens that establish it.
package auth

import "context"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  int64
	TokenID string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}
