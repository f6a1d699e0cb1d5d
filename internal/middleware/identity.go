package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
)

const principalKey = "principal"

// PrincipalFrom returns the caller attached by RequireAuth or
// OptionalAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.UserID != ""
}

func setPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
}

// currentUserID is the caller id used in rate limit keys, "anon" for
// unauthenticated requests.
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.UserID
	}
	return "anon"
}
