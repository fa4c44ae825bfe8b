package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
)

// Error renders the last error attached with c.Error. BaseError values carry
// their own status; anything else is reported as an internal error.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var baseErr errutil.BaseError
		if errors.As(last.Err, &baseErr) {
			c.JSON(baseErr.Code.HTTPStatus(), baseErr.JSON())
			return
		}

		logger.L(c.Request.Context()).Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(last.Err),
		)
		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "internal server error",
		}.JSON())
	}
}
