package middleware

import (
	"time"

	"github.com/chaos-io/maskswap/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger logs one line per request through the global zap logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			util.Logger.Error("request", fields...)
		case status >= 400:
			util.Logger.Warn("request", fields...)
		default:
			util.Logger.Info("request", fields...)
		}
	}
}

// Recovery turns panics in handlers into a logged 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		util.Logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatus(500)
	})
}
