package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Roles carried in the token's roles claim.
const (
	RoleAdmin   = "Admin"
	RoleDoctor  = "Doctor"
	RolePatient = "Patient"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    uuid.UUID
	Email string
	Roles []string
	// TokenID and ExpiresAt identify the bearer token, for sign-out.
	TokenID   string
	ExpiresAt time.Time
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }

// IsAuthenticated reports whether the principal came from a verified token.
func (p Principal) IsAuthenticated() bool { return p.ID != uuid.Nil }

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by JWTMiddleware, or the
// zero Principal for anonymous requests.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}
