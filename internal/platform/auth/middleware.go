package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

// PrincipalLookup resolves a token subject against the identity store.
// A subject that no longer exists must return an error.
type PrincipalLookup interface {
	LoadPrincipal(ctx context.Context, userID string) (*Principal, error)
}

// Gate resolves the bearer credential, if any, into a Principal on the
// request context. It never rejects: a missing, malformed, expired or
// orphaned credential just leaves the request anonymous, and RequireRole
// (or Check) turns that into 401 where authentication is needed.
func Gate(tokens *TokenManager, lookup PrincipalLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				return next(c)
			}
			ctx := c.Request().Context()
			p, err := lookup.LoadPrincipal(ctx, claims.Subject)
			if err != nil || p == nil {
				return next(c)
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			c.Set("user_id", p.UserID)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// PrincipalOf returns the caller of the current request, or nil.
func PrincipalOf(c echo.Context) *Principal {
	return PrincipalFromContext(c.Request().Context())
}
