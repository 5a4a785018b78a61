package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/logging"
)

// Recovery turns a panic into a 500 response and logs it with the request
// logger.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logging.FromContext(c).Error().
			Interface("panic", recovered).
			Str("path", c.FullPath()).
			Msg("panic recovered")
		apierrors.InternalError(c, "")
		c.Abort()
	})
}
