package auth

import "context"

// Principal is the authenticated caller, loaded fresh from the identity
// store on every request.
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	// ProfileID is the caller's doctor or patient profile id, empty when the
	// account has no profile (admins, or a signup whose profile insert failed).
	ProfileID string `json:"profileId,omitempty"`
}

// Owns reports whether id names this principal, either as the account or as
// its profile. Stored owner fields use both forms.
func (p *Principal) Owns(id string) bool {
	if p == nil || id == "" {
		return false
	}
	return id == p.UserID || (p.ProfileID != "" && id == p.ProfileID)
}

func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller set by Gate, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
