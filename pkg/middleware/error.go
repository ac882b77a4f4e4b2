package middleware

import (
	"errors"

	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached to the context. Business errors
// keep their status; anything else becomes an opaque internal error.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if !errors.As(last.Err, &be) {
			logger.FromContext(c.Request.Context()).Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(last.Err))
			be = errutil.BaseError{Code: errutil.StatusInternal, Message: "internal error"}
		} else if be.Code == errutil.StatusInternal {
			logger.FromContext(c.Request.Context()).Error("request failed", zap.String("path", c.FullPath()), zap.Error(last.Err))
		}

		c.JSON(be.Code.HTTPStatus(), be.JSON())
	}
}
