package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleProvider
}

// Caller is the authenticated actor, resolved once per request from the
// bearer token.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

func (c Caller) IsProvider() bool {
	return c.Role == RoleProvider
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
