package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/access"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
)

// ErrModuleDenied is returned when the caller's role does not grant a module.
var ErrModuleDenied = apierrors.Coded(apierrors.KindAuthorization, apierrors.ErrCodeForbidden, "your role does not have access to this module")

// RequireModule lets the request through only when the current user's role
// grants module m. Must run after RequireAuth.
func RequireModule(m access.Module) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !access.CanAccessModule(user.Role, m) {
			apierrors.Respond(c, ErrModuleDenied.WithDetails(gin.H{"module": m}))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAnyModule lets the request through when any of modules is granted.
func RequireAnyModule(modules ...access.Module) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		for _, m := range modules {
			if access.CanAccessModule(user.Role, m) {
				c.Next()
				return
			}
		}
		apierrors.Respond(c, ErrModuleDenied.WithDetails(gin.H{"modules": modules}))
		c.Abort()
	}
}
