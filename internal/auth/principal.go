package auth

import (
	"context"

	"hirelane/internal/apperr"
	"hirelane/internal/store"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   uuid.UUID
	Role store.Role
	Name string
}

// PrincipalOf builds the principal for a user record.
func PrincipalOf(u *store.User) *Principal {
	return &Principal{ID: u.ID, Role: u.Role, Name: u.Name}
}

// Is reports whether the principal holds the role. A nil principal holds none.
func (p *Principal) Is(role store.Role) bool {
	return p != nil && p.Role == role
}

// Require fails with Unauthorized for a missing principal and Forbidden when
// the principal holds none of roles.
func Require(p *Principal, roles ...store.Role) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("role %s may not perform this operation", p.Role)
}

type principalKey struct{}

// WithPrincipal returns a new context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal attached by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
