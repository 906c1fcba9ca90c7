package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openshelf/openshelf/pkg/errcodes"
)

// HeaderAdminToken carries the static admin token.
const HeaderAdminToken = "X-Admin-Token"

const contextKeyAdmin = "is_admin"

// Middleware gates admin-only routes behind a single shared token.
type Middleware struct {
	token string
}

// NewMiddleware returns a middleware for the configured token. An empty
// token disables admin access entirely.
func NewMiddleware(token string) *Middleware {
	return &Middleware{token: strings.TrimSpace(token)}
}

func (m *Middleware) valid(c echo.Context) bool {
	if m.token == "" {
		return false
	}
	given := strings.TrimSpace(c.Request().Header.Get(HeaderAdminToken))
	return subtle.ConstantTimeCompare([]byte(given), []byte(m.token)) == 1
}

// Identify records whether the caller is an admin without rejecting anyone.
func (m *Middleware) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(contextKeyAdmin, m.valid(c))
		return next(c)
	}
}

// RequireAdmin rejects callers without a valid admin token.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.valid(c) {
			return errcodes.Unauthorized("Admin access is required.")
		}
		c.Set(contextKeyAdmin, true)
		return next(c)
	}
}

// RequireAdminUnless lets everyone through when allow reports true (for
// example when a site setting opens a feature to the public) and otherwise
// behaves like RequireAdmin.
func (m *Middleware) RequireAdminUnless(allow func(ctx context.Context) (bool, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.valid(c) {
				c.Set(contextKeyAdmin, true)
				return next(c)
			}
			ok, err := allow(c.Request().Context())
			if err != nil {
				return errors.WithStack(err)
			}
			if !ok {
				return errcodes.Forbidden("This action")
			}
			c.Set(contextKeyAdmin, false)
			return next(c)
		}
	}
}

// IsAdmin reports whether an earlier middleware marked the caller as admin.
func IsAdmin(c echo.Context) bool {
	admin, _ := c.Get(contextKeyAdmin).(bool)
	return admin
}
