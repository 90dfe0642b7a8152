package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Czechuuuu/szbi/internal/util"
)

// RequestLogger writes one line per handled request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  util.ClientIP(c.Request),
		}
		if id, ok := c.Get(userIDKey); ok {
			fields["user_id"] = id
		}
		entry := GetRequestLogger(c).WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Warn("handled request")
			return
		}
		entry.Info("handled request")
	}
}
