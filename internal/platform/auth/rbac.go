package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/healup/healup/pkg/apperr"
)

// Check is the role gate every restricted operation calls. A nil principal
// is unauthenticated; an empty role list admits any authenticated caller.
func Check(p *Principal, allowed ...Role) error {
	if p == nil {
		return apperr.Unauthenticated()
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("Forbidden for this role")
}

// RequireRole is the route-group form of Check.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Check(PrincipalOf(c), roles...); err != nil {
				return apperr.HTTP(err)
			}
			return next(c)
		}
	}
}

// RequireAuth admits any authenticated caller.
func RequireAuth() echo.MiddlewareFunc { return RequireRole() }
