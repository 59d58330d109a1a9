package domain

import "context"

// Identity is the verified subject and role decoded from a bearer token.
// It lives only for the duration of one request.
type Identity struct {
	Subject string
	Role    Role
}

// HasRole reports whether the identity's role is in the allowed set.
func (i Identity) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
